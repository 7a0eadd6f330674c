package photo

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PhotoID accepts the id as a JSON number or a numeric string; older
// clients send both.
type PhotoID int64

func (id *PhotoID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("photoId must be an integer, got %s", b)
	}
	*id = PhotoID(n)
	return nil
}

type DeletePhotoRequest struct {
	PhotoID PhotoID `json:"photoId" validate:"required,gt=0"`
}

type UpdateDescriptionRequest struct {
	PhotoID     PhotoID `json:"photoId" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=5000"`
}

type UpdateLocationDateRequest struct {
	PhotoID      PhotoID `json:"photoId" validate:"required,gt=0"`
	LocationName string  `json:"locationName" validate:"max=255"`
	PhotoDate    string  `json:"photoDate"`
}

// UpdateLocationRequest is the legacy coordinate form.
type UpdateLocationRequest struct {
	PhotoID PhotoID  `json:"photoId" validate:"required,gt=0"`
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Name    string   `json:"name" validate:"max=255"`
}

type PhotoResponse struct {
	ID           int64     `json:"id"`
	ImageURL     string    `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	IsCurrent    bool      `json:"is_current"`
	LocationLat  *float64  `json:"location_lat"`
	LocationLng  *float64  `json:"location_lng"`
	LocationName *string   `json:"location_name"`
	PhotoDate    *string   `json:"photo_date"` // YYYY-MM-DD
	Description  *string   `json:"description"`
}

func ToResponse(p *Photo) *PhotoResponse {
	if p == nil {
		return nil
	}
	resp := &PhotoResponse{
		ID:           p.ID,
		ImageURL:     p.ImageURL,
		CreatedAt:    p.CreatedAt,
		IsCurrent:    p.IsCurrent,
		LocationLat:  p.LocationLat,
		LocationLng:  p.LocationLng,
		LocationName: p.LocationName,
		Description:  p.Description,
	}
	if p.PhotoDate != nil {
		d := p.PhotoDate.Format(dateLayout)
		resp.PhotoDate = &d
	}
	return resp
}

func ToResponses(photos []Photo) []PhotoResponse {
	out := make([]PhotoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, *ToResponse(&photos[i]))
	}
	return out
}

const dateLayout = "2006-01-02"

// ParsePhotoDate reads YYYY-MM-DD or an RFC 3339 timestamp. An empty string
// means no date.
func ParsePhotoDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: photoDate %q is not a date", ErrValidation, s)
	}
	return &t, nil
}
