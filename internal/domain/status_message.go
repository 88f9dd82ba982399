package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusMessagesEN = map[JobStatus]string{
	JobStatusPending:             "Waiting for the render service to pick up the job",
	JobStatusProcessing:          "Processing your request",
	JobStatusGeneratingAudio:     "Generating the voiceover audio",
	JobStatusProcessingMedia:     "Preparing your product media",
	JobStatusRenderingPreparing:  "Preparing the render pipeline",
	JobStatusRenderingProcessing: "Rendering your video",
	JobStatusRenderingFinalizing: "Finalizing the video file",
	JobStatusCompleted:           "Your video is ready",
	JobStatusFailed:              "Rendering failed",
}

var statusMessagesID = map[JobStatus]string{
	JobStatusPending:             "Menunggu layanan render mengambil pekerjaan",
	JobStatusProcessing:          "Memproses permintaan Anda",
	JobStatusGeneratingAudio:     "Membuat audio pengisi suara",
	JobStatusProcessingMedia:     "Menyiapkan media produk Anda",
	JobStatusRenderingPreparing:  "Menyiapkan jalur render",
	JobStatusRenderingProcessing: "Merender video Anda",
	JobStatusRenderingFinalizing: "Menyelesaikan berkas video",
	JobStatusCompleted:           "Video Anda sudah siap",
	JobStatusFailed:              "Render gagal",
}

// StatusMessage returns a human-readable message for the given status. A
// backend-supplied detail message wins over the built-in text. Unknown
// statuses are humanized from their raw value so new backend stages still
// render something sensible.
func StatusMessage(status JobStatus, detail *ProgressDetail, locale string) string {
	if detail != nil && strings.TrimSpace(detail.Message) != "" {
		return detail.Message
	}
	messages := statusMessagesEN
	if strings.HasPrefix(strings.ToLower(locale), "id") {
		messages = statusMessagesID
	}
	if msg, ok := messages[status]; ok {
		return msg
	}
	return humanizeStatus(string(status))
}

func humanizeStatus(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return statusMessagesEN[JobStatusProcessing]
	}
	words := strings.ReplaceAll(raw, "_", " ")
	return cases.Title(language.Und).String(words)
}
