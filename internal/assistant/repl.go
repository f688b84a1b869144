package assistant

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"goutgle/internal/media"
)

// supportedUploads lists the accepted attachment extensions.
var supportedUploads = map[string]bool{
	".txt": true, ".pdf": true, ".jpg": true, ".jpeg": true, ".png": true,
}

// Run starts the interactive loop on stdin.
func (a *Assistant) Run() error {
	fmt.Println("=== Goût-gle – Ton assistant gastronomique ===")
	fmt.Printf("Session: %s\n", a.sess.ID)
	fmt.Printf("Backend: %s\n", a.cfg.Backend)
	fmt.Println("Pose une question sur le vin, les plats, les accords…")
	fmt.Println("Type /help for commands, /quit to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	var attached *media.File
	useWeb := a.cfg.WebSearch

	for {
		fmt.Print("Toi: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := a.handleCommand(input, &attached, &useWeb)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				a.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		req := Request{Question: input, UseWeb: useWeb, Media: attached}
		attached = nil // attachments are one-shot

		reply, err := a.Handle(ctx, req)
		// degraded-evidence notices survive even a failed request
		printWarnings(reply.Warnings)
		if err != nil {
			fmt.Printf("Erreur : %v\n", err)
			a.logger.Error("failed to handle question", "error", err)
			continue
		}

		// Clarification loop: collect the answers in order, then finalize.
		for len(reply.Questions) > 0 {
			fmt.Println("Goût-gle a besoin de précisions :")
			answers := make([]string, 0, len(reply.Questions))
			for _, q := range reply.Questions {
				fmt.Printf("  %s ", q)
				if !scanner.Scan() {
					return nil
				}
				answers = append(answers, strings.TrimSpace(scanner.Text()))
			}
			reply, err = a.Handle(ctx, Request{Answers: answers})
			printWarnings(reply.Warnings)
			if err != nil {
				fmt.Printf("Erreur : %v\n", err)
				a.logger.Error("failed to finalize clarification", "error", err)
				break
			}
		}

		if err == nil && reply.Text != "" {
			fmt.Printf("Goût-gle: %s\n\n", reply.Text)
		}
	}

	fmt.Println("Au revoir !")
	return nil
}

// handleCommand handles special commands
func (a *Assistant) handleCommand(cmd string, attached **media.File, useWeb *bool) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/reset":
		a.Reset()
		fmt.Println("Nouvelle conversation.")
		return false, nil

	case "/web":
		if len(parts) < 2 || (parts[1] != "on" && parts[1] != "off") {
			return false, fmt.Errorf("usage: /web on|off")
		}
		*useWeb = parts[1] == "on"
		fmt.Printf("Recherche web : %s\n", parts[1])
		return false, nil

	case "/attach":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /attach <fichier (.txt .pdf .jpg .jpeg .png)>")
		}
		path := parts[1]
		if !supportedUploads[strings.ToLower(filepath.Ext(path))] {
			fmt.Printf("Type de fichier non supporté : %s\n", filepath.Base(path))
			return false, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return false, fmt.Errorf("failed to read attachment: %w", err)
		}
		*attached = &media.File{Name: filepath.Base(path), Data: data}
		fmt.Printf("Fichier joint : %s (utilisé pour la prochaine question)\n", filepath.Base(path))
		return false, nil

	case "/models":
		lister, ok := a.completer.(ModelLister)
		if !ok {
			return false, fmt.Errorf("le backend %s ne liste pas de modèles", a.cfg.Backend)
		}
		models, err := lister.ListOllamaModels(context.Background())
		if err != nil {
			return false, fmt.Errorf("failed to list Ollama models: %w", err)
		}
		fmt.Println("\nAvailable Ollama models:")
		for i, model := range models {
			sizeGB := float64(model.Size) / (1024 * 1024 * 1024)
			current := ""
			if model.Name == a.cfg.OllamaModel {
				current = " (current)"
			}
			fmt.Printf("%d. %s - %.2f GB%s\n", i+1, model.Name, sizeGB, current)
		}
		fmt.Println()
		return false, nil

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /quit, /exit      - Exit")
		fmt.Println("  /reset            - Start a new conversation")
		fmt.Println("  /web on|off       - Toggle web search context")
		fmt.Println("  /attach <fichier> - Attach a document or wine label image")
		fmt.Println("  /models           - List available Ollama models")
		fmt.Println("  /help             - Show this help message")
		return false, nil

	default:
		return false, nil
	}
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("Attention : %s\n", w)
	}
}
