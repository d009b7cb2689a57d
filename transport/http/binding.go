package http

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/predictprotocol/walletauth/ethsig"
)

// eth_addr validates 0x-prefixed 20-byte hex addresses in request
// bindings.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("eth_addr", func(fl validator.FieldLevel) bool {
			return ethsig.IsValidAddress(fl.Field().String())
		})
	}
}
