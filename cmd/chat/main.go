package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// dialogState carries the follow-up context between turns. When the
// server asks a follow-up question, the next input is sent as a
// dialog answer instead of a fresh command.
type dialogState struct {
	InitialQuery string
	Context      json.RawMessage
}

func main() {
	server := flag.String("server", "http://localhost:8080", "Agora server URL")
	user := flag.String("user", "cli-user", "User ID for the session")
	language := flag.String("lang", "de", "Response language")
	flag.Parse()

	fmt.Println("Agora CLI")
	fmt.Printf("Server: %s | Nutzer: %s\n", *server, *user)
	fmt.Println("Beenden mit 'exit' oder 'quit'.")
	fmt.Println("Befehle: /agents, /workflows, /reset")
	fmt.Println("---")

	fetchAgents(*server)

	var dialog *dialogState
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit":
			fmt.Println("Bis bald!")
			return
		case "/agents":
			fetchAgents(*server)
			continue
		case "/workflows":
			fetchWorkflows(*server, *user)
			continue
		case "/reset":
			dialog = nil
			fmt.Println("Dialogkontext verworfen.")
			continue
		}

		if dialog != nil {
			dialog = sendFollowUp(*server, *user, input, dialog)
		} else {
			dialog = sendCommand(*server, *user, *language, input)
		}
	}
}

type workflowReply struct {
	WorkflowID        string          `json:"workflow_id"`
	Response          string          `json:"response"`
	RequiresFollowUp  bool            `json:"requires_follow_up"`
	FollowUpQuestions []string        `json:"follow_up_questions,omitempty"`
	Context           json.RawMessage `json:"context,omitempty"`
}

func fetchAgents(server string) {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Agenten nicht erreichbar: %v", err)
		return
	}
	defer resp.Body.Close()

	var agents []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
		Status struct {
			State string `json:"state"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Antwort nicht lesbar: %v", err)
		return
	}
	fmt.Println("Verfügbare Agenten:")
	for _, a := range agents {
		fmt.Printf("  %s (%s) — %s\n", a.Name, a.Role, a.Status.State)
	}
}

func fetchWorkflows(server, user string) {
	resp, err := http.Get(server + "/api/workflows?user_id=" + user)
	if err != nil {
		printError("Workflows nicht erreichbar: %v", err)
		return
	}
	defer resp.Body.Close()

	var records []struct {
		ID      string `json:"id"`
		Command string `json:"command"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		printError("Antwort nicht lesbar: %v", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("Noch keine Workflows.")
		return
	}
	for _, r := range records {
		icon := "\033[31m✗\033[0m"
		if r.Status == "completed" {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Printf("  %s %.8s — %s\n", icon, r.ID, r.Command)
	}
}

func sendCommand(server, user, language, command string) *dialogState {
	body, _ := json.Marshal(map[string]string{
		"command":  command,
		"user_id":  user,
		"language": language,
	})
	reply := post(server+"/api/voice-command", body)
	if reply == nil {
		return nil
	}
	printReply(reply)
	if reply.RequiresFollowUp && len(reply.Context) > 0 {
		return &dialogState{InitialQuery: command, Context: reply.Context}
	}
	return nil
}

func sendFollowUp(server, user, answer string, dialog *dialogState) *dialogState {
	body, _ := json.Marshal(map[string]any{
		"initial_query": dialog.InitialQuery,
		"user_response": answer,
		"user_id":       user,
		"context":       dialog.Context,
	})
	reply := post(server+"/api/follow-up", body)
	if reply == nil {
		return nil
	}
	printReply(reply)
	if reply.RequiresFollowUp && len(reply.Context) > 0 {
		return &dialogState{InitialQuery: dialog.InitialQuery, Context: reply.Context}
	}
	return nil
}

func post(url string, body []byte) *workflowReply {
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Anfrage fehlgeschlagen: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Serverfehler (%d): %s", resp.StatusCode, string(data))
		return nil
	}

	var reply workflowReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		printError("Antwort nicht lesbar: %v", err)
		return nil
	}
	return &reply
}

func printReply(reply *workflowReply) {
	fmt.Printf("\033[36m[agora]\033[0m %s\n", reply.Response)
	for _, q := range reply.FollowUpQuestions {
		fmt.Printf("  • %s\n", q)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
