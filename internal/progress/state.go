package progress

// State is the UI-facing state of the operation in flight.
type State string

const (
	StateIdle                State = "IDLE"
	StateProcessing          State = "PROCESSING"
	StateWaitingCard         State = "WAITING_CARD"
	StateCardInserted        State = "CARD_INSERTED"
	StateCardRemoved         State = "CARD_REMOVED"
	StateWaitingRemoveCard   State = "WAITING_REMOVE_CARD"
	StateEnterPassword       State = "ENTER_PASSWORD"
	StateDigitPassword       State = "DIGIT_PASSWORD"
	StatePinOK               State = "PIN_OK"
	StateEnterCVV            State = "ENTER_CVV"
	StateCVVOK               State = "CVV_OK"
	StateEnterCarBin         State = "ENTER_CAR_BIN"
	StateCarBinOK            State = "CAR_BIN_OK"
	StateEnterCarHolder      State = "ENTER_CAR_HOLDER"
	StateCarHolderOK         State = "CAR_HOLDER_OK"
	StateAuthorizing         State = "AUTHORIZING"
	StateContactlessOnDevice State = "CONTACTLESS_ON_DEVICE"
	StateContactlessError    State = "CONTACTLESS_ERROR"
	StateSolvingPendings     State = "SOLVING_PENDINGS"
	StateDownloadingTables   State = "DOWNLOADING_TABLES"
	StateRecordingTables     State = "RECORDING_TABLES"
	StateUseChip             State = "USE_CHIP"
	StateUseTarja            State = "USE_TARJA"
	StateApproved            State = "APPROVED"
	StateReproved            State = "REPROVED"
	StateSaleEnd             State = "SALE_END"
	StateActivationSuccess   State = "ACTIVATION_SUCCESS"
	StateSuccess             State = "SUCCESS"
	StateError               State = "ERROR"
	StateDefault             State = "DEFAULT"
)

var processingStates = map[State]bool{
	StateProcessing:          true,
	StateWaitingCard:         true,
	StateCardInserted:        true,
	StateCardRemoved:         true,
	StateWaitingRemoveCard:   true,
	StateEnterPassword:       true,
	StateDigitPassword:       true,
	StatePinOK:               true,
	StateEnterCVV:            true,
	StateCVVOK:               true,
	StateEnterCarBin:         true,
	StateCarBinOK:            true,
	StateEnterCarHolder:      true,
	StateCarHolderOK:         true,
	StateAuthorizing:         true,
	StateContactlessOnDevice: true,
	StateSolvingPendings:     true,
	StateDownloadingTables:   true,
	StateRecordingTables:     true,
	StateUseChip:             true,
	StateUseTarja:            true,
	StateDefault:             true,
}

var successStates = map[State]bool{
	StateApproved:          true,
	StateSuccess:           true,
	StateSaleEnd:           true,
	StateActivationSuccess: true,
}

var errorStates = map[State]bool{
	StateError:            true,
	StateReproved:         true,
	StateContactlessError: true,
}

func (s State) IsProcessing() bool { return processingStates[s] }

func (s State) IsSuccess() bool { return successStates[s] }

func (s State) IsError() bool { return errorStates[s] }

// IsTerminal reports whether the state ends an operation and only Reset leaves it.
func (s State) IsTerminal() bool {
	return s.IsSuccess() || s.IsError()
}
