// Package validation checks configuration sections and host requests.
//
// Struct tag validation (go-playground/validator) is used for decoded
// request bodies and config sections:
//
//	type TriggerRequest struct {
//	    Cmd string `json:"cmd" validate:"required,oneof=start stop pause release reset"`
//	}
//	err := validation.Validate(req)
//
// Programmatic validation collects errors for checks that tags cannot
// express:
//
//	v := validation.New()
//	v.Range("cores", n, 1, 8)
//	v.Custom(primary < n, "primary_core", "must be an enabled core")
//	err := v.Validate()
package validation
