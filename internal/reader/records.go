package reader

// ForEachRecord iterates every FASTA/FASTQ record (optionally
// gzip/bz2-compressed) across files, in order, calling fn with each
// record's name and sequence. Unlike HashInto/ForEachHash, which
// collapse a file into a single hash stream, this keeps per-record
// identity, which the search driver (C12) needs to report which
// query matched which user bins.
func ForEachRecord(files []string, fn func(name string, seq []byte) error) error {
	for _, path := range files {
		if err := forEachRecordInFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func forEachRecordInFile(path string, fn func(name string, seq []byte) error) error {
	rc, err := openSeqFile(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	rs := newRecordScanner(rc)
	for {
		name, seq, ok := rs.Next()
		if !ok {
			break
		}
		if err := fn(name, seq); err != nil {
			return err
		}
	}
	return rs.Err()
}
