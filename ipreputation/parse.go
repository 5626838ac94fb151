package ipreputation

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"riskgate/ipaddresses"
)

// parseFeed extracts the list entries from a downloaded feed body.
func parseFeed(src Source, body []byte) (entries []string, err error) {
	switch src.Format {
	case FormatPlain, "":
		entries, err = parseLines(bytes.NewReader(body))
	case FormatTarGz:
		entries, err = parseTarGz(body, src.Member)
	case FormatZip:
		entries, err = parseZip(body, src.Member)
	default:
		err = fmt.Errorf("unsupported feed format %q", src.Format)
	}
	return
}

// parseLines reads one entry per line. Comments starting with '#' are dropped, whether they fill
// the whole line or trail an entry, and tabs are removed.
func parseLines(r io.Reader) (entries []string, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.ReplaceAll(line, "\t", ""))
		if line == "" {
			continue
		}
		entries = append(entries, canonicalEntry(line))
	}
	err = scanner.Err()
	return
}

func parseTarGz(body []byte, suffix string) (entries []string, err error) {
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		var hdr *tar.Header
		hdr, err = tr.Next()
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, suffix) {
			continue
		}

		var memberEntries []string
		memberEntries, err = parseLines(tr)
		if err != nil {
			return
		}
		entries = append(entries, memberEntries...)
	}
}

func parseZip(body []byte, member string) (entries []string, err error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return
	}

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}

		var rc io.ReadCloser
		rc, err = f.Open()
		if err != nil {
			return
		}
		defer rc.Close()

		entries, err = parseLines(rc)
		return
	}

	err = fmt.Errorf("archive has no member %q", member)
	return
}

// canonicalEntry normalizes the address part of an entry and keeps its mask, if any.
func canonicalEntry(entry string) string {
	addr, bits, hasMask := strings.Cut(entry, "/")
	addr = ipaddresses.Normalize(addr)
	if hasMask {
		return addr + "/" + strings.TrimSpace(bits)
	}
	return addr
}

// dedupe removes repeated entries while keeping the first occurrence order.
func dedupe(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
