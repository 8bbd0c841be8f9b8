package domain

// AcknowledgementPrefix is prepended verbatim to every received message.
const AcknowledgementPrefix = "Message received: "

// Message is the raw text body of an incoming request. It has no identity
// and lives only for the duration of a single request.
type Message string

// Acknowledgement returns the confirmation string for the message.
func (m Message) Acknowledgement() string {
	return AcknowledgementPrefix + string(m)
}

// Acknowledge builds the confirmation for a raw body. No trimming or escaping
// is applied, so newlines and multi-byte runes come back exactly as sent.
func Acknowledge(body string) string {
	return Message(body).Acknowledgement()
}
