package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type PaymentKind string

const (
	PaymentBank PaymentKind = "Bank"
	PaymentUPI  PaymentKind = "UPI"
	PaymentQR   PaymentKind = "QR"
)

type BankDetails struct {
	BankName      string `json:"bankName"`
	HolderName    string `json:"holderName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
}

type UPIDetails struct {
	ID string
}

type QRDetails struct {
	ImageURL string
}

// PaymentMethod is a payout destination. Exactly one of Bank, UPI or QR is set.
type PaymentMethod struct {
	Bank *BankDetails
	UPI  *UPIDetails
	QR   *QRDetails
}

func BankMethod(d BankDetails) PaymentMethod { return PaymentMethod{Bank: &d} }
func UPIMethod(id string) PaymentMethod { return PaymentMethod{UPI: &UPIDetails{ID: id}} }
func QRMethod(imageURL string) PaymentMethod { return PaymentMethod{QR: &QRDetails{ImageURL: imageURL}} }

func (p PaymentMethod) Kind() PaymentKind {
	switch {
	case p.Bank != nil:
		return PaymentBank
	case p.UPI != nil:
		return PaymentUPI
	case p.QR != nil:
		return PaymentQR
	}
	return ""
}

func (p PaymentMethod) IsZero() bool {
	return p.Bank == nil && p.UPI == nil && p.QR == nil
}

var (
	upiPattern  = regexp.MustCompile(`^[\w.-]+@[\w.-]+$`)
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	acctPattern = regexp.MustCompile(`^[0-9]{6,20}$`)
)

func (p PaymentMethod) Validate() error {
	set := 0
	for _, ok := range []bool{p.Bank != nil, p.UPI != nil, p.QR != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one payment method must be set", ErrInvalidInput)
	}

	switch {
	case p.Bank != nil:
		b := p.Bank
		if strings.TrimSpace(b.HolderName) == "" || strings.TrimSpace(b.BankName) == "" {
			return fmt.Errorf("%w: bank name and holder name are required", ErrInvalidInput)
		}
		if !acctPattern.MatchString(b.AccountNumber) {
			return fmt.Errorf("%w: invalid account number", ErrInvalidInput)
		}
		if !ifscPattern.MatchString(strings.ToUpper(b.IFSCCode)) {
			return fmt.Errorf("%w: invalid IFSC code", ErrInvalidInput)
		}
	case p.UPI != nil:
		if !upiPattern.MatchString(p.UPI.ID) {
			return fmt.Errorf("%w: invalid UPI id", ErrInvalidInput)
		}
	case p.QR != nil:
		u, err := url.Parse(p.QR.ImageURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: invalid QR image url", ErrInvalidInput)
		}
	}
	return nil
}

type paymentWire struct {
	Type    PaymentKind     `json:"type"`
	Details json.RawMessage `json:"details"`
}

func (p PaymentMethod) MarshalJSON() ([]byte, error) {
	var details any
	switch {
	case p.Bank != nil:
		details = p.Bank
	case p.UPI != nil:
		details = p.UPI.ID
	case p.QR != nil:
		details = p.QR.ImageURL
	default:
		return []byte("null"), nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(paymentWire{Type: p.Kind(), Details: raw})
}

func (p *PaymentMethod) UnmarshalJSON(data []byte) error {
	*p = PaymentMethod{}
	if string(data) == "null" {
		return nil
	}

	var w paymentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Type {
	case PaymentBank:
		var b BankDetails
		if err := json.Unmarshal(w.Details, &b); err != nil {
			return err
		}
		p.Bank = &b
	case PaymentUPI:
		var id string
		if err := json.Unmarshal(w.Details, &id); err != nil {
			return err
		}
		p.UPI = &UPIDetails{ID: id}
	case PaymentQR:
		var u string
		if err := json.Unmarshal(w.Details, &u); err != nil {
			return err
		}
		p.QR = &QRDetails{ImageURL: u}
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, w.Type)
	}
	return nil
}
