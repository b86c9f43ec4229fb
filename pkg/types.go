package pkg

import "time"

// Patient is a person record created at intake. Age, gender and phone are
// optional free-form fields supplied on the login form; only the name is
// required. Patients are never mutated or deleted after creation.
type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       *int      `json:"age,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Role describes who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message in a patient's conversation. Turns are append-only
// and ordered by creation time.
type ChatTurn struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the JSON body accepted by POST /api/send_message.
type SendMessageRequest struct {
	PatientID int64  `json:"patient_id"`
	Message   string `json:"message"`
}

// SendMessageResponse carries the assistant's reply back to the browser.
type SendMessageResponse struct {
	Reply string `json:"reply"`
}
