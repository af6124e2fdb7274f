package sim

func midCents(bid, ask int64) (int64, bool) {
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2, true
	case bid > 0:
		return bid, true
	case ask > 0:
		return ask, true
	default:
		return 0, false
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
