package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/coachery-ai/voicelink"
	"github.com/coachery-ai/voicelink/pkg/audio"
	"github.com/coachery-ai/voicelink/pkg/tools"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	apiKey := os.Getenv("VOICELINK_API_KEY")
	if apiKey == "" {
		log.Fatal("Error: VOICELINK_API_KEY must be set.")
	}

	opts := []voicelink.Option{
		voicelink.WithMetrics("voicelink"),
	}
	if v := os.Getenv("VOICELINK_ENDPOINT"); v != "" {
		opts = append(opts, voicelink.WithEndpoint(v))
	}
	if v := os.Getenv("VOICELINK_MODEL"); v != "" {
		opts = append(opts, voicelink.WithModel(v))
	}
	if v := os.Getenv("VOICELINK_VOICE"); v != "" {
		opts = append(opts, voicelink.WithVoice(v))
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		opts = append(opts, voicelink.WithWebSearch(v))
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		opts = append(opts, voicelink.WithMapsSearch(v))
	}

	conv := voicelink.New(apiKey, opts...)
	defer conv.Close()

	instructions := os.Getenv("AGENT_INSTRUCTIONS")
	if instructions == "" {
		instructions = "You are a helpful and concise voice coach. Use short sentences suitable for speech."
	}
	conv.SetInstructions(instructions)

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", conv.Metrics().Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	// Optional session recording of everything the model says.
	var dumpMu sync.Mutex
	var dumpPCM []byte
	dumpPath := os.Getenv("DUMP_WAV")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := conv.Go(ctx, voicelink.Callbacks{
		OnSessionStarted: func() {
			fmt.Println("Voice Agent Started! Listening to microphone...")
			fmt.Println("Press Ctrl+C to exit")
		},
		OnInputTranscript: func(text string) {
			fmt.Printf("\r\033[K🎤 [YOU] %s\n", text)
		},
		OnOutputTranscript: func(text string) {
			fmt.Printf("\r\033[K🔊 [COACH] %s\n", text)
		},
		OnModelAudio: func(buf *audio.Buffer) {
			if dumpPath == "" {
				return
			}
			dumpMu.Lock()
			dumpPCM = append(dumpPCM, buf.PCM...)
			dumpMu.Unlock()
		},
		OnToolCallStart: func(name, query string) {
			fmt.Printf("\r\033[K🔎 [TOOL] %s(%q)...\n", name, query)
		},
		OnToolCallResult: func(name string) {
			fmt.Printf("\r\033[K✅ [TOOL] %s done\n", name)
		},
		OnTurnComplete: func(results tools.TurnResults) {
			for _, r := range results.Web {
				fmt.Printf("\r\033[K📄 [SOURCE] %s (%s)\n", r.Title, r.URI)
			}
			for _, p := range results.Places {
				fmt.Printf("\r\033[K📍 [PLACE] %s (%s)\n", p.Title, p.URI)
			}
		},
		OnError: func(message string, authError bool) {
			if authError {
				fmt.Printf("\r\033[K❌ [AUTH] %s - check VOICELINK_API_KEY\n", message)
				return
			}
			fmt.Printf("\r\033[K❌ [ERROR] %s\n", message)
		},
		OnSessionEnded: func() {
			fmt.Printf("\r\033[K🛑 [SESSION] Ended by the service.\n")
		},
	})
	if err != nil {
		log.Fatalf("Error: could not start session: %v", err)
	}
	log.Printf("session %s", id)

	// Visual feedback for microphone levels.
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			level := conv.InputLevel()
			dots := int(level * 500)
			if dots > 40 {
				dots = 40
			}
			fmt.Printf("\r[MIC %-40s] RMS: %.5f", strings.Repeat("|", dots), level)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")

	if err := conv.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}

	if dumpPath != "" {
		dumpMu.Lock()
		pcm := dumpPCM
		dumpMu.Unlock()
		if len(pcm) > 0 {
			wav := audio.WavBytes(audio.NewBuffer(pcm, 24000, 1))
			if err := os.WriteFile(dumpPath, wav, 0o644); err != nil {
				log.Printf("write %s: %v", dumpPath, err)
			} else {
				log.Printf("wrote %s (%d bytes)", dumpPath, len(wav))
			}
		}
	}
}
