package util

type Envelope map[string]any

// Error is the body of every failed request: {"error": code}.
func Error(code string) Envelope {
	return Envelope{"error": code}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}

// With adds a field to the envelope and returns it for chaining.
func (e Envelope) With(key string, value any) Envelope {
	e[key] = value
	return e
}
