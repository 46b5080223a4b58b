package turn

type AssignTurnRequest struct {
	UserName string `json:"user_name" form:"user_name" binding:"max=100"`
}
