package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Add space for negative sign
	if negative {
		digits++
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	if negative {
		buf[0] = '-'
	}

	return string(buf)
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[pos:])
}
