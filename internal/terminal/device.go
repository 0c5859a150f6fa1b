package terminal

import (
	"fmt"
	"strings"
)

// Capability is a hardware module the terminal may have.
type Capability int

const (
	CapabilityMag             Capability = 1
	CapabilityICC             Capability = 2
	CapabilityPICC            Capability = 3
	CapabilityPED             Capability = 4
	CapabilityKeyboard        Capability = 5
	CapabilityPrinter         Capability = 6
	CapabilityBluetooth       Capability = 7
	CapabilityCashBox         Capability = 8
	CapabilityCustomerDisplay Capability = 9
	CapabilityEthernet        Capability = 10
	CapabilityFingerprint     Capability = 11
	CapabilityGSensor         Capability = 12
	CapabilityHDMI            Capability = 13
	CapabilityIDCardReader    Capability = 14
	CapabilitySM              Capability = 15
	CapabilityModem           Capability = 16
)

var capabilityNames = map[Capability]string{
	CapabilityMag:             "MAG",
	CapabilityICC:             "ICC",
	CapabilityPICC:            "PICC",
	CapabilityPED:             "PED",
	CapabilityKeyboard:        "KEYBOARD",
	CapabilityPrinter:         "PRINTER",
	CapabilityBluetooth:       "BLUETOOTH",
	CapabilityCashBox:         "CASH_BOX",
	CapabilityCustomerDisplay: "CUSTOMER_DISPLAY",
	CapabilityEthernet:        "ETHERNET",
	CapabilityFingerprint:     "FINGERPRINT_READER",
	CapabilityGSensor:         "G_SENSOR",
	CapabilityHDMI:            "HDMI",
	CapabilityIDCardReader:    "ID_CARD_READER",
	CapabilitySM:              "SM",
	CapabilityModem:           "MODEM",
}

func (c Capability) Valid() bool {
	_, ok := capabilityNames[c]
	return ok
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// ParseCapability accepts a capability name, case-insensitively.
func ParseCapability(name string) (Capability, error) {
	for c, n := range capabilityNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// AllCapabilities lists every known capability in vendor order.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityNames))
	for c := CapabilityMag; c <= CapabilityModem; c++ {
		caps = append(caps, c)
	}
	return caps
}

// SubAcquirer is the sub-acquiring merchant registered on the terminal.
type SubAcquirer struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	UF         string `json:"uf"`
	Country    string `json:"country"`
	ZipCode    string `json:"zip_code"`
	MCC        string `json:"mcc"`
	CnpjCpf    string `json:"cnpj_cpf"`
	DocType    string `json:"doc_type"`
	Telephone  string `json:"telephone"`
	FullName   string `json:"full_name"`
	MerchantID string `json:"merchant_id"`
}

// UserData is the merchant account the terminal is activated for.
type UserData struct {
	Address           string `json:"address,omitempty"`
	City              string `json:"city,omitempty"`
	CnpjCpf           string `json:"cnpj_cpf,omitempty"`
	AddressComplement string `json:"address_complement,omitempty"`
	CompanyName       string `json:"company_name,omitempty"`
	NickName          string `json:"nick_name,omitempty"`
	AddressState      string `json:"address_state,omitempty"`
	Email             string `json:"email,omitempty"`
}

// ReceiptCopy selects which receipt to reprint.
type ReceiptCopy string

const (
	ReceiptCustomer ReceiptCopy = "customer"
	ReceiptMerchant ReceiptCopy = "merchant"
)

func (c ReceiptCopy) Valid() bool {
	return c == ReceiptCustomer || c == ReceiptMerchant
}

// Installment is one option of a split payment.
type Installment struct {
	Quantity int    `json:"quantity"`
	Amount   string `json:"amount"`
	Total    string `json:"total"`
}
