package codec

import (
	"strconv"
	"time"

	"storefront/internal/models"
)

// DateLayout is the string form of date attribute values.
const DateLayout = "2006-01-02"

// Value is the decoded payload of a product attribute value row.
type Value interface {
	// Strings returns the discrete facet values carried by the payload.
	Strings() []string
	isValue()
}

// TextValue holds a text payload already split into its logical values.
type TextValue struct {
	Values []string
}

type NumberValue struct {
	Number float64
}

type BoolValue struct {
	Bool bool
}

type DateValue struct {
	Date time.Time
}

func (TextValue) isValue()   {}
func (NumberValue) isValue() {}
func (BoolValue) isValue()   {}
func (DateValue) isValue()   {}

func (v TextValue) Strings() []string { return v.Values }

func (v NumberValue) Strings() []string {
	return []string{strconv.FormatFloat(v.Number, 'f', -1, 64)}
}

func (v BoolValue) Strings() []string { return []string{strconv.FormatBool(v.Bool)} }

func (v DateValue) Strings() []string { return []string{v.Date.UTC().Format(DateLayout)} }

// Decode picks the populated column for the data type. A row whose typed
// column is empty falls back to whichever column is set, and a row with
// nothing set decodes to an empty TextValue.
func Decode(row *models.ProductAttributeValue, dataType models.AttributeDataType) Value {
	if row == nil {
		return TextValue{}
	}
	switch dataType {
	case models.AttributeNumber:
		if row.ValueNumber != nil {
			return NumberValue{Number: *row.ValueNumber}
		}
	case models.AttributeBoolean:
		if row.ValueBoolean != nil {
			return BoolValue{Bool: *row.ValueBoolean}
		}
	case models.AttributeDate:
		if row.ValueDate != nil {
			return DateValue{Date: *row.ValueDate}
		}
	case models.AttributeText:
		if row.ValueText != nil {
			return TextValue{Values: Parse(row.ValueText)}
		}
	}
	switch {
	case row.ValueText != nil:
		return TextValue{Values: Parse(row.ValueText)}
	case row.ValueNumber != nil:
		return NumberValue{Number: *row.ValueNumber}
	case row.ValueBoolean != nil:
		return BoolValue{Bool: *row.ValueBoolean}
	case row.ValueDate != nil:
		return DateValue{Date: *row.ValueDate}
	}
	return TextValue{}
}
