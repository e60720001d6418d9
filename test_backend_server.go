package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// Fake minutes backend for local end-to-end runs of the client pipeline.
// It accepts every token, stores blobs in memory, and answers with canned
// summaries.

type minutesResponse struct {
	Summary      string `json:"summary"`
	DynamicTitle string `json:"dynamic_title"`
}

type uploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	BlobName  string `json:"blob_name"`
}

var (
	blobMu sync.Mutex
	blobs  = map[string][]byte{}
)

func uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(200 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	createdDate := r.FormValue("created_date")
	creator := r.FormValue("creator")
	customerName := r.FormValue("customer_name")
	meetingPlace := r.FormValue("meeting_place")
	blobName := r.FormValue("blob_name")

	var payloadSize int
	var filename string
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Error reading file", http.StatusInternalServerError)
			return
		}
		payloadSize = len(data)
		filename = header.Filename
	} else if blobName != "" {
		blobMu.Lock()
		data, ok := blobs[blobName]
		blobMu.Unlock()
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "blob not found: " + blobName})
			return
		}
		payloadSize = len(data)
		filename = blobName
	} else {
		http.Error(w, "Missing file or blob_name", http.StatusBadRequest)
		return
	}

	log.Printf("UPLOAD REQUEST: file=%s size=%d blob=%s meta=[%s %s %s %s] request_id=%s",
		filename, payloadSize, blobName, createdDate, creator, customerName, meetingPlace,
		r.Header.Get("X-Request-ID"))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := minutesResponse{
		Summary:      fmt.Sprintf("1. 打合せ概要\nテスト議事録（%d バイトの音声から生成）\n\n3. 決定事項\n・特になし", payloadSize),
		DynamicTitle: fmt.Sprintf("%s_%s_%s_%s_議事録", createdDate, creator, customerName, meetingPlace),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func generateUploadURLHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	blobName := fmt.Sprintf("local/%d_%s", time.Now().UnixNano(), req.Filename)
	log.Printf("UPLOAD URL ISSUED: blob=%s content_type=%s", blobName, req.ContentType)

	json.NewEncoder(w).Encode(uploadURLResponse{
		UploadURL: "http://localhost:9090/storage/" + blobName,
		BlobName:  blobName,
	})
}

func storageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	blobName := r.URL.Path[len("/storage/"):]
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading payload", http.StatusInternalServerError)
		return
	}

	blobMu.Lock()
	blobs[blobName] = data
	blobMu.Unlock()

	log.Printf("STORAGE PUT: blob=%s size=%d", blobName, len(data))
	w.WriteHeader(http.StatusOK)
}

func mergeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Summaries []string `json:"summaries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	log.Printf("MERGE REQUEST: %d summaries", len(req.Summaries))

	merged := ""
	for i, s := range req.Summaries {
		if i > 0 {
			merged += "\n\n"
		}
		merged += s
	}

	json.NewEncoder(w).Encode(map[string]string{"summary": merged})
}

func exportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Summary string            `json:"summary"`
		Format  string            `json:"format"`
		Meta    map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	log.Printf("EXPORT REQUEST: format=%s summary_len=%d", req.Format, len(req.Summary))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write([]byte(req.Summary))
}

func main() {
	http.HandleFunc("/api/upload", uploadHandler)
	http.HandleFunc("/api/generate-upload-url", generateUploadURLHandler)
	http.HandleFunc("/storage/", storageHandler)
	http.HandleFunc("/api/merge", mergeHandler)
	http.HandleFunc("/api/export", exportHandler)

	port := ":9090"
	log.Printf("Test Minutes Backend starting on port %s", port)
	log.Printf("Update configs/config.yaml to use: http://localhost%s", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
