package funcs

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	// Register temporal component functions
	Register(FuncDef{
		Name:    "yearOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnYearOf,
	})

	Register(FuncDef{
		Name:    "monthOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnMonthOf,
	})

	Register(FuncDef{
		Name:    "dayOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnDayOf,
	})

	Register(FuncDef{
		Name:    "hourOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnHourOf,
	})

	Register(FuncDef{
		Name:    "minuteOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnMinuteOf,
	})

	Register(FuncDef{
		Name:    "secondOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnSecondOf,
	})

	Register(FuncDef{
		Name:    "millisecond",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnMillisecond,
	})

	Register(FuncDef{
		Name:    "timezoneOffsetOf",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnTimezoneOffsetOf,
	})

	Register(FuncDef{
		Name:    "lowBoundary",
		MinArgs: 0,
		MaxArgs: 1,
		Fn:      fnLowBoundary,
	})

	Register(FuncDef{
		Name:    "highBoundary",
		MinArgs: 0,
		MaxArgs: 1,
		Fn:      fnHighBoundary,
	})

	Register(FuncDef{
		Name:    "difference",
		MinArgs: 2,
		MaxArgs: 2,
		Fn:      fnDifference,
	})

	Register(FuncDef{
		Name:    "duration",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnDuration,
	})

}

// fnYearOf returns the year component.
func fnYearOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		return types.Collection{types.NewInteger(int64(v.Year()))}, nil
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Year()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMonthOf returns the month component.
func fnMonthOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		if v.Precision() < types.MonthPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Month()))}, nil
	case types.DateTime:
		if v.DatePrecision() < types.DTMonthPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Month()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnDayOf returns the day component.
func fnDayOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.Date:
		if v.Precision() < types.DayPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Day()))}, nil
	case types.DateTime:
		if v.DatePrecision() < types.DTDayPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Day()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnHourOf returns the hour component.
func fnHourOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		if v.DatePrecision() < types.DTHourPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Hour()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Hour()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMinuteOf returns the minute component.
func fnMinuteOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		if v.DatePrecision() < types.DTMinutePrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Minute()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Minute()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnSecondOf returns the second component.
func fnSecondOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		if v.DatePrecision() < types.DTSecondPrecision {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(int64(v.Second()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Second()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnMillisecond returns the millisecond component.
func fnMillisecond(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	switch v := input[0].(type) {
	case types.DateTime:
		return types.Collection{types.NewInteger(int64(v.Millisecond()))}, nil
	case types.Time:
		return types.Collection{types.NewInteger(int64(v.Millisecond()))}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnTimezoneOffsetOf returns the timezone offset, in hours, of a DateTime
// that carries an explicit timezone. Returns empty for datetimes with no
// timezone and for non-DateTime input.
func fnTimezoneOffsetOf(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	dt, ok := input[0].(types.DateTime)
	if !ok || !dt.HasTimezone() {
		return types.Collection{}, nil
	}

	hours := decimal.NewFromInt(int64(dt.TimezoneOffsetMinutes())).Div(decimal.NewFromInt(60))
	return types.Collection{types.NewDecimalFromDecimal(hours)}, nil
}

// fnLowBoundary returns the lowest possible value consistent with the
// precision of the input: a partial Date or DateTime widens to the earliest
// DateTime it covers, and a Decimal drops by half of 10^-precision, where
// precision is the optional argument (default 8). Any other input,
// including a Time, yields Empty.
func fnLowBoundary(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return boundaryOf(input[0], args, false)
}

// fnHighBoundary returns the highest possible value consistent with the
// precision of the input.
func fnHighBoundary(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return boundaryOf(input[0], args, true)
}

func boundaryOf(v types.Value, args []interface{}, high bool) (types.Collection, error) {
	switch val := v.(type) {
	case types.Decimal:
		precision := int32(8)
		if len(args) > 0 {
			if n, err := toInteger(args[0]); err == nil {
				precision = int32(n)
			}
		}
		step := decimal.New(1, -precision)
		if high {
			return types.Collection{types.NewDecimalFromDecimal(val.Value().Add(step.Div(decimal.NewFromInt(2))))}, nil
		}
		return types.Collection{types.NewDecimalFromDecimal(val.Value().Sub(step.Div(decimal.NewFromInt(2))))}, nil
	case types.Date:
		widened := widenDate(val, high)
		return types.Collection{widened}, nil
	case types.DateTime:
		widened := widenDateTime(val, high)
		return types.Collection{widened}, nil
	default:
		return types.Collection{}, nil
	}
}

func widenDate(d types.Date, high bool) types.DateTime {
	year, month, day := d.Year(), d.Month(), d.Day()
	if d.Precision() < types.MonthPrecision {
		if high {
			month = 12
		} else {
			month = 1
		}
	}
	if d.Precision() < types.DayPrecision {
		if high {
			day = lastDayOfMonth(year, month)
		} else {
			day = 1
		}
	}
	hour, minute, second, millis := 0, 0, 0, 0
	if high {
		hour, minute, second, millis = 23, 59, 59, 999
	}
	dt, _ := types.NewDateTimeFromParts(year, month, day, hour, minute, second, millis)
	return dt
}

func widenDateTime(dt types.DateTime, high bool) types.DateTime {
	year, month, day := dt.Year(), dt.Month(), dt.Day()
	hour, minute, second, millis := dt.Hour(), dt.Minute(), dt.Second(), dt.Millisecond()

	if dt.DatePrecision() < types.DTMonthPrecision {
		if high {
			month = 12
		} else {
			month = 1
		}
	}
	if dt.DatePrecision() < types.DTDayPrecision {
		if high {
			day = lastDayOfMonth(year, month)
		} else {
			day = 1
		}
	}
	if dt.DatePrecision() < types.DTHourPrecision {
		hour = 0
		if high {
			hour = 23
		}
	}
	if dt.DatePrecision() < types.DTMinutePrecision {
		minute = 0
		if high {
			minute = 59
		}
	}
	if dt.DatePrecision() < types.DTSecondPrecision {
		second = 0
		if high {
			second = 59
		}
	}
	if dt.DatePrecision() < types.DTMillisPrecision {
		millis = 0
		if high {
			millis = 999
		}
	}
	widened, _ := types.NewDateTimeFromParts(year, month, day, hour, minute, second, millis)
	return widened
}

func lastDayOfMonth(year, month int) int {
	if month == 0 {
		month = 1
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// fnDifference computes the signed difference between two temporal values
// at the given precision, using calendar arithmetic for year/month/week/day
// and elapsed time for sub-day units.
func fnDifference(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(args) < 2 {
		return nil, eval.InvalidArgumentsError("difference", 2, len(args))
	}
	other, ok := args[0].(types.Collection)
	if !ok || other.Empty() {
		return types.Collection{}, nil
	}
	precision, ok := toStringArg(args[1])
	if !ok {
		return nil, eval.TypeError("String", "unknown", "difference")
	}

	t1, ok1 := toGoTime(input[0])
	t2, ok2 := toGoTime(other[0])
	if !ok1 || !ok2 {
		return types.Collection{}, nil
	}

	n, err := calendarDifference(t1, t2, precision)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewInteger(n)}, nil
}

// fnDuration returns the absolute magnitude between two temporals: whole
// days for Date-Date, milliseconds for DateTime-DateTime or Time-Time.
func fnDuration(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	other, ok := args[0].(types.Collection)
	if !ok || other.Empty() {
		return types.Collection{}, nil
	}

	switch input[0].(type) {
	case types.Date:
		t1, _ := toGoTime(input[0])
		t2, _ := toGoTime(other[0])
		days := t2.Sub(t1).Hours() / 24
		if days < 0 {
			days = -days
		}
		q := types.NewQuantityFromDecimal(decimal.NewFromFloat(days), "day")
		return types.Collection{q}, nil
	case types.DateTime, types.Time:
		t1, _ := toGoTime(input[0])
		t2, _ := toGoTime(other[0])
		ms := t2.Sub(t1).Milliseconds()
		if ms < 0 {
			ms = -ms
		}
		q := types.NewQuantityFromDecimal(decimal.NewFromInt(ms), "ms")
		return types.Collection{q}, nil
	default:
		return types.Collection{}, nil
	}
}

func toGoTime(v types.Value) (time.Time, bool) {
	switch t := v.(type) {
	case types.Date:
		return t.ToTime(), true
	case types.DateTime:
		return t.ToTime(), true
	case types.Time:
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Millisecond()*1000000, time.UTC), true
	}
	return time.Time{}, false
}

func calendarDifference(t1, t2 time.Time, precision string) (int64, error) {
	switch precision {
	case "year", "years":
		return int64(t2.Year() - t1.Year()), nil
	case "month", "months":
		years := t2.Year() - t1.Year()
		months := int(t2.Month()) - int(t1.Month())
		return int64(years*12 + months), nil
	case "week", "weeks":
		return int64(t2.Sub(t1).Hours() / (24 * 7)), nil
	case "day", "days":
		return int64(t2.Sub(t1).Hours() / 24), nil
	case "hour", "hours":
		return int64(t2.Sub(t1).Hours()), nil
	case "minute", "minutes":
		return int64(t2.Sub(t1).Minutes()), nil
	case "second", "seconds":
		return int64(t2.Sub(t1).Seconds()), nil
	case "millisecond", "milliseconds":
		return t2.Sub(t1).Milliseconds(), nil
	default:
		return 0, eval.NewEvalError(eval.ErrInvalidArguments, "unknown difference precision: %s", precision)
	}
}

