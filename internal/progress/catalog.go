package progress

import (
	"bridge-pos-payments/internal/terminal"
)

// OperationKind selects the message catalog for an operation.
type OperationKind string

const (
	OperationNone    OperationKind = ""
	OperationPayment OperationKind = "payment"
	OperationVoid    OperationKind = "void"
)

// transition is the reducer's entry for one event code.
type transition struct {
	state   State
	message string
}

// Catalog holds the per-operation texts shown to the customer. Terminal messages are
// pt-BR because that is the locale of the terminal UI.
type Catalog struct {
	Start          string
	Success        string
	Failure        string
	EventFallback  string
	Unknown        string
	PasswordPrefix string
	PasswordMask   string
	events         map[terminal.EventCode]transition
}

func baseEvents() map[terminal.EventCode]transition {
	return map[terminal.EventCode]transition{
		terminal.EventWaitingCard:         {StateWaitingCard, "Insira, passe ou aproxime o cartão"},
		terminal.EventInsertedCard:        {StateCardInserted, "Cartão identificado"},
		terminal.EventRemovedCard:         {StateCardRemoved, "Cartão removido"},
		terminal.EventWaitingRemoveCard:   {StateWaitingRemoveCard, "Remova o cartão"},
		terminal.EventPinRequested:        {StateEnterPassword, "Digite sua senha"},
		terminal.EventNoPassword:          {StateEnterPassword, "Digite sua senha"},
		terminal.EventPinOK:               {StatePinOK, "Senha confirmada"},
		terminal.EventDigitPassword:       {StateDigitPassword, ""},
		terminal.EventCVVRequested:        {StateEnterCVV, "Digite o CVV do cartão"},
		terminal.EventCVVOK:               {StateCVVOK, "CVV confirmado"},
		terminal.EventCarBinRequested:     {StateEnterCarBin, "Digite o BIN do cartão"},
		terminal.EventCarBinOK:            {StateCarBinOK, "BIN confirmado"},
		terminal.EventCarHolderRequested:  {StateEnterCarHolder, "Digite o nome do portador"},
		terminal.EventCarHolderOK:         {StateCarHolderOK, "Nome confirmado"},
		terminal.EventContactlessError:    {StateContactlessError, "Erro na leitura por aproximação"},
		terminal.EventContactlessOnDevice: {StateContactlessOnDevice, "Siga as instruções no dispositivo"},
		terminal.EventUseChip:             {StateUseChip, "Insira o cartão com chip"},
		terminal.EventUseTarja:            {StateUseTarja, "Use a tarja do cartão!"},
		terminal.EventSolvePendings:       {StateSolvingPendings, "Resolvendo pendências..."},
		terminal.EventDownloadingTables:   {StateDownloadingTables, "Fazendo carga de tabelas..."},
		terminal.EventRecordingTables:     {StateRecordingTables, "Gravando tabelas..."},
		terminal.EventActivationSuccess:   {StateActivationSuccess, "Ativação realizada com sucesso"},
	}
}

// PaymentCatalog returns the texts used during a sale.
func PaymentCatalog() *Catalog {
	events := baseEvents()
	events[terminal.EventAuthorizing] = transition{StateAuthorizing, "Autorizando..."}
	events[terminal.EventApproved] = transition{StateApproved, "Pagamento aprovado!"}
	events[terminal.EventNotApproved] = transition{StateReproved, "Pagamento reprovado!"}
	events[terminal.EventSaleEnd] = transition{StateSaleEnd, "Transação finalizada"}
	events[terminal.EventSuccess] = transition{StateSuccess, "Transação concluída com sucesso!"}

	return &Catalog{
		Start:          "Processando...",
		Success:        "Transação concluída com sucesso!",
		Failure:        "Falha no pagamento",
		EventFallback:  "Erro no evento",
		Unknown:        "...",
		PasswordPrefix: "Senha: ",
		PasswordMask:   "*",
		events:         events,
	}
}

// VoidCatalog returns the texts used while reversing a transaction.
func VoidCatalog() *Catalog {
	events := baseEvents()
	events[terminal.EventAuthorizing] = transition{StateAuthorizing, "Autorizando estorno..."}
	events[terminal.EventApproved] = transition{StateApproved, "Estorno aprovado!"}
	events[terminal.EventNotApproved] = transition{StateReproved, "Estorno reprovado!"}
	events[terminal.EventSaleEnd] = transition{StateSaleEnd, "Estorno finalizado"}
	events[terminal.EventSuccess] = transition{StateSuccess, "Estorno concluído com sucesso!"}

	return &Catalog{
		Start:          "Processando estorno...",
		Success:        "Estorno concluído com sucesso!",
		Failure:        "Falha no estorno",
		EventFallback:  "Erro no evento",
		Unknown:        "...",
		PasswordPrefix: "Senha: ",
		PasswordMask:   "*",
		events:         events,
	}
}

// CatalogFor picks the catalog matching kind. Unknown kinds get the payment texts.
func CatalogFor(kind OperationKind) *Catalog {
	if kind == OperationVoid {
		return VoidCatalog()
	}
	return PaymentCatalog()
}

func (c *Catalog) lookup(code terminal.EventCode) (transition, bool) {
	t, ok := c.events[code]
	return t, ok
}
