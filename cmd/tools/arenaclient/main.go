// arenaclient is a terminal client for Persona Arena: it keeps its own
// local store, talks to the completion services directly and uses a
// running relay to share debate sessions with other viewers.
//
// Usage:
//
//	arenaclient -mode onboard -name "Ada" -topics "math, computing" -style Direct
//	arenaclient -mode chat -persona <id> -text "hello"
//	arenaclient -mode list
//	arenaclient -mode debate -personas <id1>,<id2> -topic "Cats vs Dogs"
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/personarena/backend/internal/config"
	debatemodel "github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/model/persona"
	"github.com/personarena/backend/internal/service/ai"
	chatservice "github.com/personarena/backend/internal/service/chat"
	debateservice "github.com/personarena/backend/internal/service/debate"
	"github.com/personarena/backend/internal/service/onboarding"
	"github.com/personarena/backend/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "mode: onboard, chat, list or debate")
	name := flag.String("name", "", "onboard: persona name")
	topics := flag.String("topics", "", "onboard: topics of interest")
	style := flag.String("style", persona.StyleFriendly, "onboard: communication style")
	criticism := flag.String("criticism", "", "onboard: response to criticism")
	motivation := flag.String("motivation", "", "onboard: what motivates you")
	personaID := flag.String("persona", "", "chat: persona id")
	text := flag.String("text", "", "chat: message text")
	personaIDs := flag.String("personas", "", "debate: comma-separated persona ids (2-3)")
	topic := flag.String("topic", "", "debate: topic")
	flag.Parse()

	st, err := store.OpenSQLite(cfg.Store.Path, cfg.Store.Record)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	switch *mode {
	case "list":
		runList(st)
	case "onboard":
		gateway := mustGateway(ctx, cfg)
		svc := onboarding.NewService(st, gateway)
		answers := persona.OnboardingAnswers{
			Name:               *name,
			Topics:             *topics,
			CommunicationStyle: *style,
			CriticismResponse:  *criticism,
			Motivation:         *motivation,
		}
		profile, err := svc.CreatePersona(ctx, answers)
		if err != nil {
			log.Fatalf("persona creation failed: %v", err)
		}
		fmt.Printf("created persona %s (%s)\n", profile.Name, profile.ID)
	case "chat":
		if *personaID == "" || *text == "" {
			log.Fatal("chat mode requires -persona and -text")
		}
		gateway := mustGateway(ctx, cfg)
		svc := chatservice.NewService(st, gateway)
		reply, err := svc.SendMessage(ctx, *personaID, *text)
		if err != nil {
			log.Fatalf("chat failed: %v", err)
		}
		fmt.Println(reply.Content)
	case "debate":
		ids := splitIDs(*personaIDs)
		gateway := mustGateway(ctx, cfg)
		runDebate(ctx, cfg, st, gateway, ids, *topic)
	default:
		log.Fatal("specify -mode=onboard, -mode=chat, -mode=list or -mode=debate")
	}
}

func runList(st store.Store) {
	for _, p := range st.Personas() {
		fmt.Printf("persona %s  %s  [%s]\n", p.ID, p.Name, p.CommunicationStyle)
	}
	for _, s := range st.DebateSessions() {
		state := "ended"
		if s.IsActive {
			state = "active"
		}
		fmt.Printf("debate  %s  %q  %d messages  %s\n", s.ID, s.Topic, len(s.Messages), state)
	}
}

func runDebate(ctx context.Context, cfg *config.Config, st store.Store, gateway *ai.Service, personaIDs []string, topic string) {
	manager := debateservice.NewManager(st, gateway, debateservice.NewRealtimeConnector(cfg.Realtime))

	session, err := manager.Start(personaIDs, topic)
	if err != nil {
		log.Fatalf("failed to start debate: %v", err)
	}
	fmt.Printf("debate session %s  topic %q\n", session.ID, session.Topic)

	manager.OnRelayed(func(sessionID string, message debatemodel.Message) {
		fmt.Printf("\n<%s> %s\n> ", message.PersonaID, message.Content)
	})

	if err := manager.Join(ctx, session.ID); err != nil {
		log.Fatalf("failed to join debate room: %v", err)
	}
	defer manager.End(session.ID)

	fmt.Println("type a persona id to submit its turn, or 'quit' to end the debate")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "quit":
			return
		default:
			message, err := manager.SubmitTurn(ctx, session.ID, line)
			if err != nil {
				log.Printf("turn failed: %v", err)
			} else {
				fmt.Printf("<%s> %s\n", message.PersonaID, message.Content)
			}
		}
		fmt.Print("> ")
	}
}

func mustGateway(ctx context.Context, cfg *config.Config) *ai.Service {
	gateway, err := ai.NewService(ctx, cfg.AI, cfg.Image)
	if err != nil {
		log.Fatalf("failed to initialize completion gateway: %v", err)
	}
	return gateway
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
