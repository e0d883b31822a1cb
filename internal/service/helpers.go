package service

import "strconv"

func fmt32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func fmtCents(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}
