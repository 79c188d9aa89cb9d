// Package tip holds the wizard's form model and the pure derivations computed
// from it: pricing, track classification, the proposal preview and the
// submit gate.
package tip

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/crypto-power/tipwizard/libtipper/chains"
)

// Form field keys, shared by the JSON encoding and validation errors.
const (
	FieldTitle       = "tipTitle"
	FieldDescription = "tipDescription"
	FieldAmount      = "tipAmount"
	FieldReferralFee = "referralFeePercent"
	FieldBeneficiary = "tipBeneficiary"
	FieldReferral    = "referral"
	FieldTrack       = "tipperTrack"

	DefaultReferralFeePercent = 10

	msgRequired = "This field is required"
)

// Number is a numeric form field exactly as typed. It decodes from either a
// JSON number or a string so partially typed input survives persistence.
type Number string

// NewNumber returns a Number holding v.
func NewNumber(v float64) *Number {
	n := Number(strconv.FormatFloat(v, 'f', -1, 64))
	return &n
}

// UnmarshalJSON accepts numbers and strings.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(data)
	return nil
}

// MarshalJSON writes parsable values as numbers and anything else as a
// string.
func (n Number) MarshalJSON() ([]byte, error) {
	if v, ok := parseFloat(string(n)); ok && strings.TrimSpace(string(n)) != "" {
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}
	return json.Marshal(string(n))
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseNumber coerces a form field to a float. Absent or unparsable values
// report ok=false, a blank value coerces to zero.
func ParseNumber(n *Number) (float64, bool) {
	if n == nil {
		return 0, false
	}
	return parseFloat(n.String())
}

func (n *Number) String() string {
	if n == nil {
		return ""
	}
	return string(*n)
}

// FormDraft is the possibly partial set of wizard answers. It is what gets
// persisted between sessions.
type FormDraft struct {
	TipTitle           string             `json:"tipTitle,omitempty"`
	TipDescription     string             `json:"tipDescription,omitempty"`
	TipAmount          *Number            `json:"tipAmount,omitempty"`
	ReferralFeePercent *Number            `json:"referralFeePercent,omitempty"`
	TipBeneficiary     string             `json:"tipBeneficiary,omitempty"`
	Referral           string             `json:"referral,omitempty"`
	TipperTrack        chains.TipperTrack `json:"tipperTrack,omitempty"`
}

// DefaultDraft returns the values a fresh wizard starts from.
func DefaultDraft() *FormDraft {
	return &FormDraft{
		TipAmount:          NewNumber(0),
		ReferralFeePercent: NewNumber(DefaultReferralFeePercent),
	}
}

// Copy returns a deep copy of the draft.
func (d *FormDraft) Copy() *FormDraft {
	if d == nil {
		return nil
	}
	c := *d
	if d.TipAmount != nil {
		v := *d.TipAmount
		c.TipAmount = &v
	}
	if d.ReferralFeePercent != nil {
		v := *d.ReferralFeePercent
		c.ReferralFeePercent = &v
	}
	return &c
}

// ValidationErrors maps a form field key to the message shown inline.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, field+": "+v[field])
	}
	return strings.Join(msgs, "; ")
}

// ValidatedForm is produced only by Validate. Transaction builders accept
// nothing else so they never need fallback values.
type ValidatedForm struct {
	Chain              chains.ChainType
	Title              string
	Description        string
	Amount             float64 // reference currency
	ReferralFeePercent float64
	Beneficiary        string
	Referral           string
	Track              chains.TipperTrack
}

// HasReferral reports whether a referral fee spend should be created.
func (f *ValidatedForm) HasReferral() bool {
	return f.Referral != "" && f.ReferralFeePercent > 0
}

// Validate checks the draft against the form schema for the given chain.
func Validate(draft *FormDraft, params *chains.Params) (*ValidatedForm, ValidationErrors) {
	errs := make(ValidationErrors)
	if draft == nil {
		draft = &FormDraft{}
	}

	title := strings.TrimSpace(draft.TipTitle)
	if title == "" {
		errs[FieldTitle] = msgRequired
	}

	description := strings.TrimSpace(draft.TipDescription)
	if description == "" {
		errs[FieldDescription] = msgRequired
	}

	amount, ok := ParseNumber(draft.TipAmount)
	switch {
	case draft.TipAmount == nil:
		errs[FieldAmount] = msgRequired
	case !ok || amount < 0:
		errs[FieldAmount] = "Tip amount must be a positive number"
	}

	var feePercent float64
	if draft.ReferralFeePercent != nil {
		feePercent, ok = ParseNumber(draft.ReferralFeePercent)
		if !ok || feePercent < 0 || feePercent > 100 {
			errs[FieldReferralFee] = "Referral fee must be between 0 and 100"
		}
	}

	beneficiary := strings.TrimSpace(draft.TipBeneficiary)
	if beneficiary == "" {
		errs[FieldBeneficiary] = msgRequired
	} else if _, err := params.ValidateAddress(beneficiary); err != nil {
		errs[FieldBeneficiary] = "Invalid " + params.Name + " address"
	}

	referral := strings.TrimSpace(draft.Referral)
	if referral != "" {
		if _, err := params.ValidateAddress(referral); err != nil {
			errs[FieldReferral] = "Invalid " + params.Name + " address"
		}
	}

	switch draft.TipperTrack {
	case "", chains.SmallTipper, chains.BigTipper:
	default:
		errs[FieldTrack] = "Unknown tipper track"
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &ValidatedForm{
		Chain:              params.Type,
		Title:              title,
		Description:        description,
		Amount:             amount,
		ReferralFeePercent: feePercent,
		Beneficiary:        beneficiary,
		Referral:           referral,
		Track:              draft.TipperTrack,
	}, nil
}
