package photo

import "time"

// Photo is one uploaded image. At most one Photo has IsCurrent set; it is
// the one featured on the homepage.
type Photo struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ImageURL     string     `gorm:"column:image_url;not null" json:"image_url"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	IsCurrent    bool       `gorm:"column:is_current;not null;index" json:"is_current"`
	LocationLat  *float64   `gorm:"column:location_lat" json:"location_lat"` // legacy
	LocationLng  *float64   `gorm:"column:location_lng" json:"location_lng"` // legacy
	LocationName *string    `gorm:"column:location_name" json:"location_name"`
	PhotoDate    *time.Time `gorm:"column:photo_date" json:"photo_date"`
	Description  *string    `gorm:"column:description" json:"description"`
}

func (Photo) TableName() string { return "photos" }

// Column names shared by every Store implementation.
const (
	ColID           = "id"
	ColImageURL     = "image_url"
	ColCreatedAt    = "created_at"
	ColIsCurrent    = "is_current"
	ColLocationLat  = "location_lat"
	ColLocationLng  = "location_lng"
	ColLocationName = "location_name"
	ColPhotoDate    = "photo_date"
	ColDescription  = "description"
)

var knownColumns = map[string]bool{
	ColID:           true,
	ColImageURL:     true,
	ColCreatedAt:    true,
	ColIsCurrent:    true,
	ColLocationLat:  true,
	ColLocationLng:  true,
	ColLocationName: true,
	ColPhotoDate:    true,
	ColDescription:  true,
}

// KnownColumn reports whether name is a column of the photos table.
func KnownColumn(name string) bool { return knownColumns[name] }
