package backend

// Task is a teleoperation task as listed by the backend.
type Task struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Difficulty       string  `json:"difficulty"`
	ExpectedDuration int     `json:"expected_duration"`
	SuccessRate      float64 `json:"success_rate"`
	Thumbnail        string  `json:"thumbnail,omitempty"`
}

// User is a row of the admin overview. Email and wallet are empty when the
// backend reports null.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"default_wallet_address"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Overview struct {
	Users []User `json:"users"`
	Tasks []Task `json:"tasks"`
}

// Session is the result of exchanging an identity token.
type Session struct {
	AppID     string `json:"app_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	// Cookie is the value of the axis_session cookie, if the backend set one.
	Cookie string `json:"-"`
}

type taskList struct {
	Tasks []Task `json:"tasks"`
}

type errorBody struct {
	Detail string `json:"detail"`
}
