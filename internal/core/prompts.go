package core

// prompts.go holds the fixed system instruction and the advisory replies the
// assistant falls back to. Keeping them in one file makes them easy to tweak
// without touching the rest of the code.

const (
	// SystemPrompt constrains the assistant: general safe information only,
	// no definitive diagnoses, urgent-care escalation for dangerous symptoms.
	// It is prepended to every completion request.
	SystemPrompt = "You are a helpful medical assistant. Provide general information and safe suggestions. " +
		"Do NOT give definitive diagnoses. If symptoms sound urgent or dangerous, advise the user to seek immediate professional care."

	// MissingKeyMessage is returned when no API credential is configured.
	MissingKeyMessage = "AI key not configured on server. Ask admin to set GROQ_API_KEY env variable."

	// EmptyResponseMessage is returned when the endpoint answered with no
	// usable content in either response field.
	EmptyResponseMessage = "Sorry, the AI returned an empty response."

	// ServiceErrorPrefix starts the advisory reply for any transport,
	// status, timeout, or parse failure; a short diagnostic follows it.
	ServiceErrorPrefix = "Sorry, AI service error: "
)
