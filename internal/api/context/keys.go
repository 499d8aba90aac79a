package context

type Key string

const (
	Claims   Key = "claims"
	Params   Key = "params"
	ClientIP Key = "client_ip"
)
