package shop

import "errors"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrOutOfStock       = errors.New("quantity exceeds stock")
)
