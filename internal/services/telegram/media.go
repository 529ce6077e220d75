package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// MaxAlbumSize is the sendMediaGroup limit.
const MaxAlbumSize = 10

// Photo is a local file to upload.
type Photo struct {
	Path    string
	Caption string
}

type inputMediaPhoto struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// SendMediaGroup uploads up to ten photos as one album.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, photos []Photo) ([]Message, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	if len(photos) > MaxAlbumSize {
		return nil, fmt.Errorf("telegram sendMediaGroup: %d photos exceeds album limit %d", len(photos), MaxAlbumSize)
	}
	if len(photos) == 1 {
		msg, err := c.SendPhoto(ctx, chatID, photos[0])
		if err != nil {
			return nil, err
		}
		return []Message{*msg}, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	media := make([]inputMediaPhoto, len(photos))
	for i, photo := range photos {
		field := "photo" + strconv.Itoa(i)
		media[i] = inputMediaPhoto{Type: "photo", Media: "attach://" + field, Caption: photo.Caption}
		if err := attachFile(writer, field, photo.Path); err != nil {
			return nil, err
		}
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("telegram sendMediaGroup: encode media: %w", err)
	}
	_ = writer.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	_ = writer.WriteField("media", string(encoded))
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("telegram sendMediaGroup: close form: %w", err)
	}

	var messages []Message
	if err := c.upload(ctx, "sendMediaGroup", &body, writer.FormDataContentType(), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendPhoto uploads a single photo.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo Photo) (*Message, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if photo.Caption != "" {
		_ = writer.WriteField("caption", photo.Caption)
	}
	if err := attachFile(writer, "photo", photo.Path); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("telegram sendPhoto: close form: %w", err)
	}
	var msg Message
	if err := c.upload(ctx, "sendPhoto", &body, writer.FormDataContentType(), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument uploads a file as a document (used for promo videos).
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) (*Message, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if caption != "" {
		_ = writer.WriteField("caption", caption)
	}
	if err := attachFile(writer, "document", path); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("telegram sendDocument: close form: %w", err)
	}
	var msg Message
	if err := c.upload(ctx, "sendDocument", &body, writer.FormDataContentType(), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendAlbum sends photos in albums of at most ten, in order.
func (c *Client) SendAlbum(ctx context.Context, chatID int64, photos []Photo) error {
	for _, chunk := range ChunkPhotos(photos, MaxAlbumSize) {
		if _, err := c.SendMediaGroup(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// ChunkPhotos splits photos into consecutive groups of at most size.
func ChunkPhotos(photos []Photo, size int) [][]Photo {
	if size <= 0 {
		size = MaxAlbumSize
	}
	var chunks [][]Photo
	for start := 0; start < len(photos); start += size {
		end := min(start+size, len(photos))
		chunks = append(chunks, photos[start:end])
	}
	return chunks
}

func (c *Client) upload(ctx context.Context, method string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, method, out)
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram upload: open %s: %w", path, err)
	}
	defer file.Close()
	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("telegram upload: form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("telegram upload: copy %s: %w", path, err)
	}
	return nil
}
