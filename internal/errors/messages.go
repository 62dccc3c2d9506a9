package errors

// GenericUserMessage is shown when an error code has no dedicated message.
const GenericUserMessage = "Something went wrong. Please try again."

var userMessages = map[Kind]string{
	KindNetwork:      "Unable to connect. Please check your internet connection.",
	KindTimeout:      "The request took too long. Please try again.",
	KindAuth:         "Your session has expired. Please sign in again.",
	KindPermission:   "You don't have permission to do that.",
	KindNotFound:     "We couldn't find what you were looking for.",
	KindRateLimit:    "Too many requests. Please wait a moment and try again.",
	KindServer:       "Our servers are having trouble. Please try again later.",
	KindValidation:   "Please check your input and try again.",
	KindStorage:      "We couldn't save your data on this device.",
	KindStorageParse: "Some saved data was damaged and had to be reset.",
}

// UserMessage translates a taxonomy code into a human-readable string.
// Unknown codes fall back to GenericUserMessage.
func UserMessage(code string) string {
	if msg, ok := userMessages[Kind(code)]; ok {
		return msg
	}
	return GenericUserMessage
}

// UserMessageFor is UserMessage applied to the kind of err.
func UserMessageFor(err error) string {
	if err == nil {
		return ""
	}
	return UserMessage(string(KindOf(err)))
}
