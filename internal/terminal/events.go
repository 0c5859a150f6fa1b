package terminal

// EventCode is the tag of a progress event emitted by the terminal during an operation.
type EventCode string

const (
	EventWaitingCard         EventCode = "WAITING_CARD"
	EventInsertedCard        EventCode = "INSERTED_CARD"
	EventRemovedCard         EventCode = "REMOVED_CARD"
	EventWaitingRemoveCard   EventCode = "WAITING_REMOVE_CARD"
	EventPinRequested        EventCode = "PIN_REQUESTED"
	EventPinOK               EventCode = "PIN_OK"
	EventNoPassword          EventCode = "NO_PASSWORD"
	EventDigitPassword       EventCode = "DIGIT_PASSWORD"
	EventCVVRequested        EventCode = "CVV_REQUESTED"
	EventCVVOK               EventCode = "CVV_OK"
	EventCarBinRequested     EventCode = "CAR_BIN_REQUESTED"
	EventCarBinOK            EventCode = "CAR_BIN_OK"
	EventCarHolderRequested  EventCode = "CAR_HOLDER_REQUESTED"
	EventCarHolderOK         EventCode = "CAR_HOLDER_OK"
	EventAuthorizing         EventCode = "AUTHORIZING"
	EventApproved            EventCode = "APPROVED"
	EventNotApproved         EventCode = "NOT_APPROVED"
	EventUseChip             EventCode = "USE_CHIP"
	EventUseTarja            EventCode = "USE_TARJA"
	EventContactlessError    EventCode = "CONTACTLESS_ERROR"
	EventContactlessOnDevice EventCode = "CONTACTLESS_ON_DEVICE"
	EventSolvePendings       EventCode = "SOLVE_PENDINGS"
	EventDownloadingTables   EventCode = "DOWNLOADING_TABLES"
	EventRecordingTables     EventCode = "RECORDING_TABLES"
	EventSaleEnd             EventCode = "SALE_END"
	EventActivationSuccess   EventCode = "ACTIVATION_SUCCESS"
	EventSuccess             EventCode = "SUCCESS"
	EventError               EventCode = "ON_EVENT_ERROR"
	EventCustomMessage       EventCode = "CUSTOM_MESSAGE"
	EventDefault             EventCode = "DEFAULT"
)

// ProgressEvent is one notification from the terminal for the in-flight operation.
type ProgressEvent struct {
	Code    EventCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// EventListener receives progress events. A gateway holds at most one listener.
type EventListener interface {
	OnEvent(message string, code EventCode)
}

// EventListenerFunc adapts a plain function to EventListener.
type EventListenerFunc func(message string, code EventCode)

func (f EventListenerFunc) OnEvent(message string, code EventCode) {
	f(message, code)
}
