package httpgate

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"riskgate/gate"
)

// ChallengeHeader tells clients the hardness of the challenge they were given.
const ChallengeHeader = "X-Riskgate-Challenge"

// Presenter renders the responses for requests the gate does not let through.
type Presenter interface {
	Challenge(w http.ResponseWriter, r *http.Request, d gate.Disposition)
	Block(w http.ResponseWriter, r *http.Request, d gate.Disposition)
}

// PlainPresenter answers with the route's template when there is one, and plain text otherwise.
type PlainPresenter struct{}

// Challenge responds 403 and names the hardness in ChallengeHeader.
func (PlainPresenter) Challenge(w http.ResponseWriter, r *http.Request, d gate.Disposition) {
	w.Header().Set(ChallengeHeader, strconv.Itoa(d.Hardness))
	respond(w, d.Template, http.StatusForbidden, fmt.Sprintf("Verification required (hardness %d)\n", d.Hardness))
}

// Block responds 403.
func (PlainPresenter) Block(w http.ResponseWriter, r *http.Request, d gate.Disposition) {
	respond(w, d.Template, http.StatusForbidden, "Forbidden\n")
}

func respond(w http.ResponseWriter, template string, code int, text string) {
	w.Header().Set("Cache-Control", "no-store")

	if template != "" {
		if b, err := os.ReadFile(template); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(code)
			w.Write(b)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(text))
}
