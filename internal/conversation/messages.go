package conversation

import (
	"strings"

	"studio/internal/domain"
)

// User-visible strings keyed by locale. The dispatch taxonomy wording is
// part of the product contract: a timeout reads as "taking longer", not as a
// failure of the job itself.
var catalogs = map[string]map[string]string{
	"en": {
		"stream_failed":      "The connection to the assistant was interrupted. Please try again.",
		"dispatch_config":    "This template is not configured yet: %s",
		"endpoint_not_found": "The generation endpoint could not be found. Please contact support.",
		"dispatch_timeout":   "The generation timed out after 4 minutes. Please try again.",
		"unreachable":        "Cannot reach the generation server. Please check your connection and resend.",
		"dispatch_status":    "The generation service reported an error. Please resend your request.",
		"job_failed":         "Profile creation failed: %s",
		"poll_timeout":       "This is taking longer than expected. The job is still running in the background.",
		"upload":             "One of your files could not be uploaded: %s. Your message was not sent.",
		"image_ready":        "Your image is ready! Tell me what you would like to change and I will refine it.",
		"package_done":       "Your social package is on its way. You will be notified when it is ready.",
		"video_done":         "Your product video has been queued. You will be notified when it is ready.",
	},
	"de": {
		"stream_failed":      "Die Verbindung zum Assistenten wurde unterbrochen. Bitte versuche es erneut.",
		"dispatch_config":    "Diese Vorlage ist noch nicht konfiguriert: %s",
		"endpoint_not_found": "Der Generierungsendpunkt wurde nicht gefunden. Bitte kontaktiere den Support.",
		"dispatch_timeout":   "Die Generierung hat nach 4 Minuten das Zeitlimit erreicht. Bitte versuche es erneut.",
		"unreachable":        "Der Generierungsserver ist nicht erreichbar. Bitte prüfe deine Verbindung und sende erneut.",
		"dispatch_status":    "Der Generierungsdienst hat einen Fehler gemeldet. Bitte sende deine Anfrage erneut.",
		"job_failed":         "Die Profilerstellung ist fehlgeschlagen: %s",
		"poll_timeout":       "Das dauert länger als erwartet. Der Auftrag läuft im Hintergrund weiter.",
		"upload":             "Eine deiner Dateien konnte nicht hochgeladen werden: %s. Deine Nachricht wurde nicht gesendet.",
		"image_ready":        "Dein Bild ist fertig! Sag mir, was du ändern möchtest, und ich verfeinere es.",
		"package_done":       "Dein Social-Paket ist unterwegs. Du wirst benachrichtigt, sobald es fertig ist.",
		"video_done":         "Dein Produktvideo wurde eingeplant. Du wirst benachrichtigt, sobald es fertig ist.",
	},
	"id": {
		"stream_failed":      "Koneksi ke asisten terputus. Silakan coba lagi.",
		"dispatch_config":    "Template ini belum dikonfigurasi: %s",
		"endpoint_not_found": "Endpoint generasi tidak ditemukan. Silakan hubungi dukungan.",
		"dispatch_timeout":   "Proses generasi melebihi batas 4 menit. Silakan coba lagi.",
		"unreachable":        "Server generasi tidak dapat dijangkau. Periksa koneksi Anda dan kirim ulang.",
		"dispatch_status":    "Layanan generasi melaporkan kesalahan. Silakan kirim ulang permintaan Anda.",
		"job_failed":         "Pembuatan profil gagal: %s",
		"poll_timeout":       "Proses ini memakan waktu lebih lama dari perkiraan. Pekerjaan masih berjalan di latar belakang.",
		"upload":             "Salah satu file Anda gagal diunggah: %s. Pesan Anda tidak terkirim.",
		"image_ready":        "Gambar Anda sudah jadi! Beri tahu saya apa yang ingin diubah dan saya akan memperbaikinya.",
		"package_done":       "Paket sosial Anda sedang diproses. Anda akan diberi tahu saat sudah siap.",
		"video_done":         "Video produk Anda sudah diantrekan. Anda akan diberi tahu saat sudah siap.",
	},
}

func lookup(locale, key string) string {
	cat, ok := catalogs[normalizeLocale(locale)]
	if !ok {
		cat = catalogs["en"]
	}
	if msg, ok := cat[key]; ok {
		return msg
	}
	return catalogs["en"][key]
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

// failureMessage renders a categorized failure for the conversation log.
// Collaborator-authored detail (job error messages, configuration hints)
// surfaces verbatim inside the localized wrapper.
func failureMessage(locale string, f *domain.Failure) string {
	switch f.Kind {
	case domain.FailureStream:
		return lookup(locale, "stream_failed")
	case domain.FailureDispatchConfig:
		return sprintfDetail(lookup(locale, "dispatch_config"), f)
	case domain.FailureEndpointNotFound:
		return lookup(locale, "endpoint_not_found")
	case domain.FailureDispatchTimeout:
		return lookup(locale, "dispatch_timeout")
	case domain.FailureUnreachable:
		return lookup(locale, "unreachable")
	case domain.FailureJobReported:
		return sprintfDetail(lookup(locale, "job_failed"), f)
	case domain.FailurePollTimeout:
		return lookup(locale, "poll_timeout")
	case domain.FailureUpload:
		return sprintfDetail(lookup(locale, "upload"), f)
	default:
		return lookup(locale, "dispatch_status")
	}
}

func sprintfDetail(template string, f *domain.Failure) string {
	detail := f.Detail
	if detail == "" && f.Cause != nil {
		detail = f.Cause.Error()
	}
	return strings.Replace(template, "%s", detail, 1)
}

// confirmationMessage closes a successful dispatch.
func confirmationMessage(locale string, t domain.Template) string {
	switch t {
	case domain.TemplateImage:
		return lookup(locale, "image_ready")
	case domain.TemplateProductVideo:
		return lookup(locale, "video_done")
	default:
		return lookup(locale, "package_done")
	}
}
