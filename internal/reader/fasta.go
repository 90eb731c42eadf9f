package reader

import (
	"bufio"
	"bytes"
	"io"
)

// recordScanner iterates FASTA or FASTQ records from a stream,
// auto-detecting the format from the first record marker ('@' for
// FASTQ, '>' for FASTA), in the spirit of utils.ReadInSeq but
// generalised to both formats per spec 4.3.
type recordScanner struct {
	sc         *bufio.Scanner
	isFastq    bool
	detected   bool
	pending    string
	hasPending bool
}

func newRecordScanner(r io.Reader) *recordScanner {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 64*1024*1024)
	return &recordScanner{sc: sc}
}

// Next returns the name and sequence of the next record, or ok=false
// at end of input.
func (rs *recordScanner) Next() (name string, seq []byte, ok bool) {
	line, ok := rs.nextLine()
	if !ok {
		return "", nil, false
	}
	if !rs.detected {
		rs.detected = true
		rs.isFastq = len(line) > 0 && line[0] == '@'
	}

	if len(line) == 0 {
		return "", nil, false
	}
	name = line[1:]

	if rs.isFastq {
		seqLine, ok := rs.nextLine()
		if !ok {
			return "", nil, false
		}
		rs.nextLine() // '+' separator
		rs.nextLine() // quality string
		return name, []byte(seqLine), true
	}

	var buf bytes.Buffer
	for {
		l, ok := rs.nextLine()
		if !ok {
			break
		}
		if len(l) > 0 && l[0] == '>' {
			rs.pending = l
			rs.hasPending = true
			break
		}
		buf.WriteString(l)
	}
	return name, buf.Bytes(), true
}

func (rs *recordScanner) nextLine() (string, bool) {
	if rs.hasPending {
		rs.hasPending = false
		return rs.pending, true
	}
	if !rs.sc.Scan() {
		return "", false
	}
	return rs.sc.Text(), true
}

// Err reports any scanning error encountered.
func (rs *recordScanner) Err() error {
	return rs.sc.Err()
}
