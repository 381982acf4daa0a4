package apperrors

var (
	// Domain errors — used by the chat service
	ErrSelfConversation = Validation("cannot start a conversation with yourself")
	ErrInvalidTarget    = NotFound("target user not found")
	ErrBlocked          = New(CodeBlocked, "this user does not accept your messages")
	ErrNotAMember       = New(CodeNotAMember, "not a member of this room")
	ErrEmptyBody        = Validation("message body cannot be empty")
	ErrRoomNotFound     = NotFound("room not found")
	ErrUserNotFound     = NotFound("user not found")
	ErrRequestNotFound  = NotFound("pending request not found")
)

func ErrAdmissionFailed(cause error) error {
	return Wrap(CodeAdmissionFailed, "could not create the conversation", cause)
}

func ErrStore(cause error) error {
	return Wrap(CodeInternal, "storage failure", cause)
}
