// Command wsclient drives the /ws streaming translation endpoint from a
// terminal. Text options send -text; speech options upload -audio in chunks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const chunkSize = 16 * 1024

func main() {
	host := flag.String("host", "localhost:5000", "server host and port")
	option := flag.String("option", "text-to-text", "translation option")
	text := flag.String("text", "", "text to translate for text-* options")
	audioPath := flag.String("audio", "", "audio file to upload for speech-* options")
	language := flag.String("language", "en", "target language")
	sourceLanguage := flag.String("source-language", "en", "source language")
	output := flag.String("out", "translation.mp3", "where to write synthesized audio")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	if strings.HasPrefix(*option, "speech-") {
		err = uploadAudio(c, *option, *audioPath, *language, *sourceLanguage)
	} else {
		err = sendJSONMessage(c, map[string]interface{}{
			"type":            "translate_text",
			"option":          *option,
			"text":            *text,
			"language":        *language,
			"source_language": *sourceLanguage,
		})
	}
	if err != nil {
		log.Fatal("send:", err)
	}

	if err := awaitResult(c, *output); err != nil {
		log.Fatal(err)
	}
}

func uploadAudio(c *websocket.Conn, option, path, language, sourceLanguage string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}

	if err := sendJSONMessage(c, map[string]interface{}{
		"type":            "translate_start",
		"option":          option,
		"language":        language,
		"source_language": sourceLanguage,
		"filename":        filepath.Base(path),
	}); err != nil {
		return err
	}

	log.Printf("uploading %s (%d bytes)", path, len(data))
	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("sending audio chunk: %w", err)
		}
	}

	return sendJSONMessage(c, map[string]interface{}{"type": "translate_end"})
}

func sendJSONMessage(c *websocket.Conn, message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// awaitResult reads frames until the translation, an error, or the end of
// the synthesized audio arrives
func awaitResult(c *websocket.Conn, output string) error {
	var audioFile *os.File
	var received int
	started := time.Now()

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if messageType == websocket.BinaryMessage {
			if audioFile == nil {
				log.Printf("dropping %d bytes of unexpected audio", len(message))
				continue
			}
			n, err := audioFile.Write(message)
			if err != nil {
				return fmt.Errorf("writing audio: %w", err)
			}
			received += n
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("unmarshal error:", err)
			continue
		}

		switch msg["type"] {
		case "upload_ready", "pong":
		case "translation":
			fmt.Println(msg["translated_text"])
			return nil
		case "error":
			return fmt.Errorf("server error (stage %v): %v", msg["stage"], msg["error"])
		case "speaking_start":
			audioFile, err = os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
		case "speaking_end":
			if audioFile == nil {
				return fmt.Errorf("speaking_end without speaking_start")
			}
			if err := audioFile.Close(); err != nil {
				return err
			}
			log.Printf("wrote %d bytes to %s in %v", received, output, time.Since(started))
			return nil
		default:
			log.Printf("ignoring message: %s", message)
		}
	}
}
