package error

// GenericError is implemented by error types that know their HTTP mapping.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}
