package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/nettester/internal/console"
	"github.com/hamed0406/nettester/internal/domain"
)

type client struct {
	base string
	key  string
	http *http.Client
}

type eventsPage struct {
	Events []domain.StatusEvent `json:"events"`
	Done   bool                 `json:"done"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	c := &client{
		base: strings.TrimRight(api, "/"),
		key:  os.Getenv("API_KEY"),
		http: &http.Client{Timeout: 40 * time.Second},
	}

	iface := ""
	if len(os.Args) > 1 {
		iface = os.Args[1]
	} else {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter an interface to diagnose (e.g., eth0): ")
		raw, _ := reader.ReadString('\n')
		iface = strings.TrimSpace(raw)
	}
	if iface == "" {
		fmt.Println("No interface given.")
		os.Exit(2)
	}

	run, err := c.start(iface)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}

	var seq int64
	for {
		page, err := c.events(run.ID, seq)
		if err != nil {
			fmt.Println("Error following run:", err)
			os.Exit(1)
		}
		for _, ev := range page.Events {
			console.Render(os.Stdout, ev)
			seq = ev.Seq
		}
		if page.Done {
			break
		}
	}

	final, err := c.summary(run.ID)
	if err != nil {
		fmt.Println("Error fetching result:", err)
		os.Exit(1)
	}
	switch final.Verdict {
	case domain.VerdictOK:
		return
	case domain.VerdictAborted:
		fmt.Println("✖ diagnosis aborted:", final.Error)
	}
	os.Exit(1)
}

func (c *client) do(method, path string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) start(iface string) (domain.RunSummary, error) {
	body, _ := json.Marshal(map[string]string{"interface": iface})
	var s domain.RunSummary
	err := c.do(http.MethodPost, "/api/runs", bytes.NewReader(body), &s)
	return s, err
}

func (c *client) events(id string, since int64) (eventsPage, error) {
	var p eventsPage
	err := c.do(http.MethodGet, fmt.Sprintf("/api/runs/%s/events?since=%d&wait=1", id, since), nil, &p)
	return p, err
}

func (c *client) summary(id string) (domain.RunSummary, error) {
	var out struct {
		Run domain.RunSummary `json:"run"`
	}
	err := c.do(http.MethodGet, "/api/runs/"+id, nil, &out)
	return out.Run, err
}
