package gemini

// itemSchema is the JSON structure the model is instructed to return for
// one generated item.
type itemSchema struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// promptData is the data passed to the prompt template.
type promptData struct {
	Payload string
}
