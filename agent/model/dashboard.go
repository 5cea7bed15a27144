package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Dashboard is the root of the persisted entity graph. It exclusively owns
// everything beneath it and is replaced wholesale on re-sync; the composite
// key (namespace, name) identifies it across rebuilds.
type Dashboard struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Namespace   string             `json:"namespace" bson:"namespace"`
	Name        string             `json:"name" bson:"name"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`

	// ContentHash is the hash of the raw source the graph was built from;
	// callers may skip a rebuild when it is unchanged.
	ContentHash string `json:"content_hash" bson:"content_hash"`

	DataSources    []DataSource     `json:"data_sources" bson:"data_sources"`
	Visualizations []Visualization  `json:"visualizations" bson:"visualizations"`
	Inputs         []DashboardInput `json:"inputs" bson:"inputs"`
	Layout         DashboardLayout  `json:"layout" bson:"layout"`

	CreatedAt primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

// Key returns the composite natural key of the dashboard.
func (d *Dashboard) Key() string {
	return d.Namespace + "/" + d.Name
}

// DataSource is one query definition owned by a dashboard. SourceID is the
// synthetic id assigned during conversion, stable within the dashboard;
// EntityID is the surrogate key, not reused across rebuilds.
type DataSource struct {
	EntityID  string `json:"entity_id" bson:"entity_id"`
	SourceID  string `json:"source_id" bson:"source_id"`
	Type      string `json:"type" bson:"type"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Query     string `json:"query,omitempty" bson:"query,omitempty"`
	Earliest  string `json:"earliest,omitempty" bson:"earliest,omitempty"`
	Latest    string `json:"latest,omitempty" bson:"latest,omitempty"`
	Refresh   string `json:"refresh,omitempty" bson:"refresh,omitempty"`
	ExtendsID string `json:"extends_id,omitempty" bson:"extends_id,omitempty"`
	SavedRef  string `json:"saved_ref,omitempty" bson:"saved_ref,omitempty"`
}

type Visualization struct {
	EntityID     string `json:"entity_id" bson:"entity_id"`
	VizID        string `json:"viz_id" bson:"viz_id"`
	Type         string `json:"type" bson:"type"`
	Title        string `json:"title,omitempty" bson:"title,omitempty"`
	OptionsJSON  string `json:"options_json,omitempty" bson:"options_json,omitempty"`
	ContextJSON  string `json:"context_json,omitempty" bson:"context_json,omitempty"`
	DataSourceID string `json:"data_source_id,omitempty" bson:"data_source_id,omitempty"`
}

type DashboardInput struct {
	EntityID    string `json:"entity_id" bson:"entity_id"`
	InputID     string `json:"input_id" bson:"input_id"`
	Token       string `json:"token" bson:"token"`
	Type        string `json:"type" bson:"type"`
	Default     string `json:"default,omitempty" bson:"default,omitempty"`
	OptionsJSON string `json:"options_json,omitempty" bson:"options_json,omitempty"`
}

type DashboardLayout struct {
	EntityID string       `json:"entity_id" bson:"entity_id"`
	Type     string       `json:"type" bson:"type"`
	Items    []LayoutItem `json:"items" bson:"items"`
}

// LayoutItem references exactly one visualization or input by entity id.
type LayoutItem struct {
	EntityID        string `json:"entity_id" bson:"entity_id"`
	X               int    `json:"x" bson:"x"`
	Y               int    `json:"y" bson:"y"`
	Width           int    `json:"w" bson:"w"`
	Height          int    `json:"h" bson:"h"`
	VisualizationID string `json:"visualization_id,omitempty" bson:"visualization_id,omitempty"`
	InputID         string `json:"input_id,omitempty" bson:"input_id,omitempty"`
}
