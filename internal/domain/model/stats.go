package model

// TodoStats summarizes the current user's todos (GET /todos/stats/summary).
type TodoStats struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Pending    int            `json:"pending"`
	ByPriority map[string]int `json:"by_priority"`
}

// SystemStats is the admin overview (GET /admin/stats/overview).
type SystemStats struct {
	Users struct {
		Total    int            `json:"total"`
		Active   int            `json:"active"`
		Verified int            `json:"verified"`
		ByRole   map[string]int `json:"by_role"`
	} `json:"users"`
	Todos struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Pending   int `json:"pending"`
	} `json:"todos"`
}
