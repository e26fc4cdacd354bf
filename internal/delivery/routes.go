package delivery

import (
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(
	r chi.Router,
	hDiag *DiagnosisHandler,
	hCapture *CaptureHandler,
) {
	r.Route("/", func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		// --- прогон целиком (аплоад аудио+снимка) ---
		pr.With(httprate.LimitByIP(10, time.Minute)).
			Post("/diagnose", hDiag.Diagnose)

		// --- серверный захват ---
		pr.Post("/capture/start", hCapture.Start)
		pr.Post("/capture/complete", hCapture.Complete)
		pr.Post("/capture/clear", hCapture.Clear)

		// --- история ---
		pr.Get("/diagnoses", hDiag.ListByUser)
		pr.Get("/diagnoses/{id}", hDiag.GetByID)
	})
}
