package nukiproto

// AuthIDPayload is the decoded payload of an AUTH_ID reply: the lock's
// authenticator, the assigned auth id, its pairing UUID, and its nonce.
type AuthIDPayload struct {
	Authenticator [32]byte
	AuthID        [4]byte
	UUID          [16]byte
	Nonce         [32]byte
}

// ErrorReportPayload is the decoded payload of an ERROR_REPORT reply.
type ErrorReportPayload struct {
	Code         ErrorCode
	OffendingCmd Command
}
