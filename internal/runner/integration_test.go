//go:build integration

package runner_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/domscout/internal/browser"
	"github.com/FranksOps/domscout/internal/probe"
	"github.com/FranksOps/domscout/internal/runner"
	"github.com/FranksOps/domscout/internal/storage"
	"github.com/FranksOps/domscout/internal/storage/textbackend"
)

// cartPage mimics the registrar: both markers are in the markup, hidden, and
// a script reveals the verdict shortly after load.
const cartPage = `<!DOCTYPE html>
<html><body>
<p class="domain-available domain-checker-available" style="display:none">tersedia</p>
<p class="domain-unavailable domain-checker-unavailable" style="display:none">tidak tersedia</p>
<script>
setTimeout(() => {
	const q = new URLSearchParams(location.search).get('query');
	const show = sel => { document.querySelector(sel).style.display = 'block'; };
	switch (q) {
	case 'go.top': show('p.domain-available'); break;
	case 'link.top': show('p.domain-unavailable'); break;
	case 'both.top': show('p.domain-available'); show('p.domain-unavailable'); break;
	case 'slow.top': break;
	}
}, 150);
</script>
</body></html>`

func TestIntegration_RunAgainstRegistrar(t *testing.T) {
	var execPath string
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			execPath = p
			break
		}
	}
	if execPath == "" {
		t.Skip("Skipping integration test: no Chrome binary found")
	}

	// 1. Setup mock registrar
	mux := http.NewServeMux()
	mux.HandleFunc("/client/cart.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, cartPage)
	})
	registrar := httptest.NewServer(mux)
	defer registrar.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 2. Setup browser, prober and result file
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session, err := browser.Launch(ctx, browser.Options{
		Headless:  true,
		NoSandbox: true,
		ExecPath:  execPath,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}
	defer session.Close()

	reg := probe.DefaultRegistrar
	reg.BaseURL = registrar.URL + "/client/cart.php?a=add&domain=register"
	prober := probe.New(session, reg, probe.Timing{
		Navigation: 20 * time.Second,
		Settle:     50 * time.Millisecond,
		Poll:       2 * time.Second,
	})

	path := filepath.Join(t.TempDir(), "hasil_scrap.txt")
	backend, err := textbackend.New(path)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	defer backend.Close()

	// 3. Execute run
	r := runner.New(runner.Config{CheckpointEvery: 2}, prober, backend, logger)
	log, err := r.Run(ctx, []string{"go.top", "link.top", "slow.top", "both.top"}, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// 4. Verify results
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read results: %v", err)
	}
	want := "go.top | tersedia\nlink.top | tidak tersedia\nslow.top | error\nboth.top | error"
	if string(raw) != want {
		t.Errorf("unexpected result file:\n%s\nwant:\n%s", raw, want)
	}

	c := log.Counts()
	if c != (storage.Counts{Available: 1, Unavailable: 1, Errors: 2}) {
		t.Errorf("unexpected counts %+v", c)
	}

	results := log.Results()
	if results[2].Detail != probe.ErrPollTimeout.Error() {
		t.Errorf("expected poll timeout for slow.top, got %q", results[2].Detail)
	}
}
