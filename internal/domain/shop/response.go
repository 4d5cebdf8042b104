package shop

// SuccessResponse 為後端成功回應的外層格式。
type SuccessResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// AuthData 為 login/register 回應的 data。
type AuthData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// DeleteResult 為刪除購買紀錄的回應 data。
type DeleteResult struct {
	DeletedCount int `json:"deleted_count"`
}
