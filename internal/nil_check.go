package internal

import "reflect"

// IsNil 判斷介面值是否為 nil，包含包著 nil 指標的 typed nil（例如 (*memory.Storage)(nil)）。
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	switch v := reflect.ValueOf(i); v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
