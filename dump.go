package gcptr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"unsafe"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/gcptr/internal/compress"
)

// Compression selects the codec of a dump stream.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ShowList writes a human-readable listing of the registry for key: one line
// per record with its address, owner count and value (the first element for
// arrays).
func (t *Table) ShowList(w io.Writer, key Key) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "gcptr registry %s: %d record(s)\n", key, t.Size(key))
	fmt.Fprintf(bw, "%-20s %8s  %s\n", "addr", "refs", "value")

	r, ok := t.registries[key]
	if !ok || r.size() == 0 {
		fmt.Fprintln(bw, "  -- Empty --")
		return bw.Flush()
	}

	for _, rec := range r.sorted() {
		fmt.Fprintf(bw, "[%#018x] %8d  %s\n", uintptr(rec.addr), rec.refs, formatValue(key.Elem, rec.addr))
	}
	return bw.Flush()
}

func formatValue(elem reflect.Type, addr unsafe.Pointer) string {
	if addr == nil {
		return "---"
	}
	return fmt.Sprintf("%v", reflect.NewAt(elem, addr).Elem().Interface())
}

// DumpRecord is one line of a registry dump.
type DumpRecord struct {
	Key      string  `json:"key"`
	Addr     uintptr `json:"addr"`
	RefCount int     `json:"refs"`
	Kind     string  `json:"kind"`
	Length   int     `json:"length,omitempty"`
	Seq      uint64  `json:"seq"`
}

type dumpOptions struct {
	compression Compression
	keys        []Key
}

// DumpOption configures WriteDump.
type DumpOption func(*dumpOptions)

// WithDumpCompression compresses the dump stream.
func WithDumpCompression(c Compression) DumpOption {
	return func(o *dumpOptions) {
		o.compression = c
	}
}

// WithDumpKeys restricts the dump to the given configurations.
func WithDumpKeys(keys ...Key) DumpOption {
	return func(o *dumpOptions) {
		o.keys = keys
	}
}

// WriteDump writes the records of every registry as JSON lines, registries in
// creation order and records newest first. It returns the number of records
// written.
func (t *Table) WriteDump(w io.Writer, optFns ...DumpOption) (int, error) {
	opts := dumpOptions{compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}

	keys := opts.keys
	if keys == nil {
		keys = t.Keys()
	}

	cw, err := compress.NewWriter(w, opts.compression)
	if err != nil {
		return 0, err
	}

	enc := gojson.NewEncoder(cw)
	n := 0
	for _, key := range keys {
		for _, info := range t.Records(key) {
			rec := DumpRecord{
				Key:      key.String(),
				Addr:     info.Addr,
				RefCount: info.RefCount,
				Kind:     info.Kind.String(),
				Length:   info.Length,
				Seq:      info.Seq,
			}
			if err := enc.Encode(&rec); err != nil {
				return n, errors.Join(err, cw.Close())
			}
			n++
		}
	}
	return n, cw.Close()
}

// ReadDump decodes a stream written by WriteDump with the given compression.
func ReadDump(r io.Reader, c Compression) ([]DumpRecord, error) {
	cr, err := compress.NewReader(r, c)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	dec := gojson.NewDecoder(cr)

	var out []DumpRecord
	for {
		var rec DumpRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("gcptr: decode dump record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
