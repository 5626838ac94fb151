package ipreputation

import (
	"archive/tar"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

type mockFileSystem struct {
	mu              sync.Mutex
	writeFileCalled int
	readFileCalled  int
	files           map[string]string
}

func newMockFileSystem() *mockFileSystem {
	return &mockFileSystem{files: make(map[string]string)}
}

func (m *mockFileSystem) writeFile(fileName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFileCalled++
	m.files[fileName] = string(data)
	return nil
}

func (m *mockFileSystem) readFile(fileName string) (data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readFileCalled++
	content, ok := m.files[fileName]
	if !ok {
		err = errors.New("file not found")
		return
	}
	data = []byte(content)
	return
}

// mockFeedServer serves fixed bodies by path and counts the requests it receives.
type mockFeedServer struct {
	*httptest.Server
	mu       sync.Mutex
	bodies   map[string][]byte
	requests int
}

func newMockFeedServer(t *testing.T, bodies map[string][]byte) *mockFeedServer {
	m := &mockFeedServer{bodies: bodies}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests++
		body, ok := m.bodies[r.URL.Path]
		m.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockFeedServer) setBody(path string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[path] = body
}

func (m *mockFeedServer) removeBody(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bodies, path)
}

func (m *mockFeedServer) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func makeTarGz(t *testing.T, members map[string]string) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range members {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func makeZip(t *testing.T, members map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
