package filters

const runLengthName = "RunLengthDecode"

// RunLengthDecode decodes PackBits-style run-length data. A length byte L
// below 128 copies the next L+1 bytes, L above 128 repeats the next byte
// 257-L times, and 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newRunLengthDecoder(next, Options{})
	})
}

// RunLengthEncode encodes data with literal and repeat runs of at most
// 128 bytes, terminated by the end-of-data marker.
func RunLengthEncode(data []byte) ([]byte, error) {
	return runStage(data, newRunLengthEncoder)
}

func newRunLengthDecoder(next Stage, opts Options) Stage {
	out := output(next, opts)
	var (
		pending []byte // bytes of an unfinished record, starting with its length byte
		done    bool
	)

	s := &stage{name: runLengthName, next: next}
	s.write = func(p []byte) error {
		if done {
			return nil
		}
		data := append(pending, p...)
		pending = nil

		var buf []byte
		i := 0
		for i < len(data) {
			l := int(data[i])
			if l == 128 {
				done = true
				break
			}
			if l < 128 {
				if i+1+l+1 > len(data) {
					break
				}
				buf = append(buf, data[i+1:i+2+l]...)
				i += l + 2
				continue
			}
			if i+1 >= len(data) {
				break
			}
			for n := 257 - l; n > 0; n-- {
				buf = append(buf, data[i+1])
			}
			i += 2
		}
		if !done && i < len(data) {
			pending = append([]byte(nil), data[i:]...)
		}
		if len(buf) == 0 {
			return nil
		}
		_, err := out.Write(buf)
		return err
	}
	s.flush = func() error {
		if len(pending) > 0 {
			return decodeErrorf(runLengthName, "truncated record: length byte %d with %d bytes following",
				pending[0], len(pending)-1)
		}
		return nil
	}
	return s
}

func newRunLengthEncoder(next Stage) Stage {
	var in []byte
	s := &stage{name: "RunLengthEncode", next: next}
	s.write = func(p []byte) error {
		in = append(in, p...)
		return nil
	}
	s.flush = func() error {
		_, err := next.Write(encodeRunLength(in))
		return err
	}
	return s
}

func encodeRunLength(data []byte) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run > 1 {
			out = append(out, byte(257-run), data[i])
			i += run
			continue
		}

		start := i
		for i < len(data) && i-start < 128 {
			if i+1 < len(data) && data[i+1] == data[i] {
				break
			}
			i++
		}
		if i == start {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, data[start:i]...)
	}
	return append(out, 128)
}
