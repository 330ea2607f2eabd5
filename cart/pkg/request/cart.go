package request

type AddItem struct {
	ProductId string `validate:"required"       json:"productId"`
	Quantity  int32  `validate:"required,gte=1" json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type UpdateItem struct {
	Quantity *int32  `validate:"omitempty,gte=1" json:"quantity,omitempty"`
	Size     *string `json:"size,omitempty"`
	Color    *string `json:"color,omitempty"`
}
