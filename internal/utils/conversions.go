package utils

import "strconv"

// ToStringSlice keeps the string members of a decoded JSON array.
func ToStringSlice(v any) []string {
	slice, ok := v.([]any)
	if !ok {
		return nil
	}
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ScalarString renders a decoded JSON string or number as a string.
// Backends disagree on whether ids are numbers or strings.
func ScalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}
