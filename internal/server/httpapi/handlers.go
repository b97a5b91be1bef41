package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/services"
	"github.com/gorilla/mux"
)

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return common.Errorf(common.ErrValidation, "Invalid request body")
	}
	return nil
}

func (s *Server) claims(r *http.Request) *auth.Claims {
	c, _ := ClaimsFrom(r.Context())
	return c
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.InitData == "" {
		s.writeError(w, r, common.Errorf(common.ErrValidation, "initData is required"))
		return
	}

	sess, err := s.auth.Authenticate(r.Context(), req.InitData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.opts.CookieTransport {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sess.Token,
			Path:     "/",
			MaxAge:   int(s.opts.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: newUserView(sess.User)})
}

// guests

func (s *Server) handleRequestApproval(w http.ResponseWriter, r *http.Request) {
	res, err := s.approvals.Request(r.Context(), s.claims(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Created {
		writeJSON(w, http.StatusCreated, messageResponse{
			Message: "Request submitted, waiting for admin approval",
			Status:  string(res.Status),
		})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Request already submitted", Status: string(res.Status)})
}

func (s *Server) handleMyRequest(w http.ResponseWriter, r *http.Request) {
	st, err := s.approvals.MyStatus(r.Context(), s.claims(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: string(st)})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.approvals.List(r.Context(), s.claims(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]requestView, 0, len(list))
	for _, u := range list {
		out = append(out, newRequestView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResolveRequest(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.approvals.Resolve(r.Context(), s.claims(r), mux.Vars(r)["requestId"], req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Request " + string(st), Status: string(st)})
}

// rsvp

func (s *Server) handleSubmitRSVP(w http.ResponseWriter, r *http.Request) {
	var req rsvpRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.rsvps.Submit(r.Context(), s.claims(r).UserID, services.RSVPInput{
		Status:       models.RSVPStatus(req.Status),
		GuestCount:   req.GuestCount,
		DietaryNotes: req.DietaryNotes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rsvpSavedResponse{Message: "RSVP saved", RSVP: newRSVPView(saved)})
}

func (s *Server) handleMyRSVP(w http.ResponseWriter, r *http.Request) {
	rsvp, err := s.rsvps.Mine(r.Context(), s.claims(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRSVPView(rsvp))
}

func (s *Server) handleAllRSVPs(w http.ResponseWriter, r *http.Request) {
	list, err := s.rsvps.All(r.Context(), s.claims(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]rsvpView, 0, len(list))
	for _, g := range list {
		v := newRSVPView(&g.RSVP)
		v.Guest = g.Guest
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRSVPStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.rsvps.Stats(r.Context(), s.claims(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsView{
		Attending:    st.Attending,
		NotAttending: st.NotAttending,
		Maybe:        st.Maybe,
		TotalGuests:  st.TotalGuests,
	})
}

// gallery

// readSinglePhoto extracts the only file of a multipart request.
func readSinglePhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(services.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", common.Errorf(common.ErrValidation, "File too large (10MB max)")
		}
		return nil, "", common.Errorf(common.ErrValidation, "No file provided")
	}
	defer r.MultipartForm.RemoveAll()

	var all []*multipart.FileHeader
	for _, files := range r.MultipartForm.File {
		all = append(all, files...)
	}
	if len(all) == 0 {
		return nil, "", common.Errorf(common.ErrValidation, "No file provided")
	}
	if len(all) > 1 {
		return nil, "", common.Errorf(common.ErrValidation, "Exactly one file per request")
	}

	fh := all[0]
	if fh.Size > services.MaxUploadBytes {
		return nil, "", common.Errorf(common.ErrValidation, "File too large (10MB max)")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: open upload: %v", common.ErrorInternal, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read upload: %v", common.ErrorInternal, err)
	}
	return data, fh.Header.Get("Content-Type"), nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	u, err := s.gates.RequireConfirmedGuest(r.Context(), s.claims(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, mime, err := readSinglePhoto(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.galleries.UploadPhoto(r.Context(), u, data, mime)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{ID: m.ID, GalleryID: m.GalleryID, URL: m.URL, ThumbnailURL: m.ThumbnailURL})
}

func (s *Server) handleListGalleries(w http.ResponseWriter, r *http.Request) {
	if _, err := s.gates.RequireConfirmedGuest(r.Context(), s.claims(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.galleries.ListGalleries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]galleryPreviewView, 0, len(list))
	for _, g := range list {
		out = append(out, galleryPreviewView{galleryView: newGalleryView(&g.Gallery), Previews: g.Previews})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGallery(w http.ResponseWriter, r *http.Request) {
	if _, err := s.gates.RequireConfirmedGuest(r.Context(), s.claims(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.galleries.GetGallery(r.Context(), mux.Vars(r)["galleryId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	photos := make([]mediaView, 0, len(d.Media))
	for _, m := range d.Media {
		photos = append(photos, newMediaView(m))
	}
	writeJSON(w, http.StatusOK, galleryDetailView{galleryView: newGalleryView(d.Gallery), Photos: photos})
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := s.galleries.DeleteMedia(r.Context(), s.claims(r), mux.Vars(r)["mediaId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Photo deleted"})
}
