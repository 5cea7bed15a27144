// Package builder materializes a studio model into the persisted entity
// graph. A build is all-or-nothing: reference checking happens before any
// repository write and the repository replace itself is atomic, so a failed
// build always leaves the previously persisted graph untouched.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/uuid/v5"

	"Vista"
	"Vista/agent/model"
	"Vista/agent/repository"
	"Vista/dashboard"
)

// Key is the composite natural key a dashboard graph lives under.
type Key struct {
	Namespace string
	Name      string
}

func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

type Builder struct {
	repo repository.DashboardRepo
	log  Vista.Logger
}

func New(repo repository.DashboardRepo, log Vista.Logger) *Builder {
	return &Builder{repo: repo, log: log}
}

// Hash computes the content hash used for change detection. Whether an
// unchanged hash skips the rebuild is the caller's policy, not enforced
// here.
func Hash(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// Build assembles the entity graph for m and commits it under key,
// replacing any previous graph. Dangling references and identifier
// collisions abort with a *Vista.BuildError before anything is written.
func (b *Builder) Build(ctx context.Context, m *dashboard.StudioModel, key Key, raw []byte) (*model.Dashboard, error) {
	graph, err := assemble(m, key)
	if err != nil {
		return nil, err
	}
	graph.ContentHash = Hash(raw)

	if err := b.repo.Replace(ctx, graph); err != nil {
		return nil, fmt.Errorf("committing dashboard %s: %w", key, err)
	}
	if b.log != nil {
		b.log.Infof("built dashboard %s: %d data sources, %d visualizations, %d inputs",
			key, len(graph.DataSources), len(graph.Visualizations), len(graph.Inputs))
	}
	return graph, nil
}

func assemble(m *dashboard.StudioModel, key Key) (*model.Dashboard, error) {
	graph := &model.Dashboard{
		Namespace:   key.Namespace,
		Name:        key.Name,
		Title:       m.Title,
		Description: m.Description,
	}

	// Surrogate ids by synthetic id, for resolving cross-references.
	dsEntity := make(map[string]string)
	vizEntity := make(map[string]string)
	inputEntity := make(map[string]string)

	for _, id := range sortedKeys(m.DataSources) {
		def := m.DataSources[id]
		entity := model.DataSource{
			EntityID: newEntityID(),
			SourceID: id,
			Type:     def.Type,
			Name:     def.Name,
			Query:    def.Options.Query,
			Earliest: def.Options.Earliest,
			Latest:   def.Options.Latest,
			Refresh:  def.Options.RefreshInterval,
			SavedRef: def.Options.Ref,
		}
		if def.Options.Extend != "" {
			if _, ok := m.DataSources[def.Options.Extend]; !ok {
				return nil, &Vista.BuildError{
					Dashboard: key.String(),
					Reason:    fmt.Sprintf("data source %q extends unknown data source %q", id, def.Options.Extend),
				}
			}
			entity.ExtendsID = def.Options.Extend
		}
		dsEntity[id] = entity.EntityID
		graph.DataSources = append(graph.DataSources, entity)
	}

	for _, id := range sortedKeys(m.Inputs) {
		def := m.Inputs[id]
		optionsJSON, err := marshalOptions(map[string]interface{}{
			"items":             def.Options.Items,
			"prefix":            def.Options.Prefix,
			"suffix":            def.Options.Suffix,
			"searchWhenChanged": def.Options.SearchWhenChanged,
			"query":             def.Options.Query,
		})
		if err != nil {
			return nil, &Vista.BuildError{Dashboard: key.String(), Reason: "encoding input options: " + err.Error()}
		}
		entity := model.DashboardInput{
			EntityID:    newEntityID(),
			InputID:     id,
			Token:       def.Options.Token,
			Type:        def.Type,
			Default:     def.Options.DefaultValue,
			OptionsJSON: optionsJSON,
		}
		inputEntity[id] = entity.EntityID
		graph.Inputs = append(graph.Inputs, entity)
	}

	for _, id := range sortedKeys(m.Visualizations) {
		if _, taken := inputEntity[id]; taken {
			return nil, &Vista.BuildError{
				Dashboard: key.String(),
				Reason:    fmt.Sprintf("identifier %q names both a visualization and an input", id),
			}
		}
		def := m.Visualizations[id]
		entity := model.Visualization{
			EntityID: newEntityID(),
			VizID:    id,
			Type:     def.Type,
			Title:    def.Title,
		}
		var err error
		if entity.OptionsJSON, err = marshalOptions(def.Options); err != nil {
			return nil, &Vista.BuildError{Dashboard: key.String(), Reason: "encoding visualization options: " + err.Error()}
		}
		if entity.ContextJSON, err = marshalOptions(def.Context); err != nil {
			return nil, &Vista.BuildError{Dashboard: key.String(), Reason: "encoding visualization context: " + err.Error()}
		}
		if primary := def.PrimaryDataSource(); primary != "" {
			entityID, ok := dsEntity[primary]
			if !ok {
				return nil, &Vista.BuildError{
					Dashboard: key.String(),
					Reason:    fmt.Sprintf("visualization %q references unknown data source %q", id, primary),
				}
			}
			entity.DataSourceID = entityID
		}
		vizEntity[id] = entity.EntityID
		graph.Visualizations = append(graph.Visualizations, entity)
	}

	graph.Layout = model.DashboardLayout{
		EntityID: newEntityID(),
		Type:     m.Layout.Type,
	}
	for _, item := range m.Layout.Items {
		layoutItem := model.LayoutItem{
			EntityID: newEntityID(),
			X:        item.Position.X,
			Y:        item.Position.Y,
			Width:    item.Position.W,
			Height:   item.Position.H,
		}
		if entityID, ok := vizEntity[item.Item]; ok {
			layoutItem.VisualizationID = entityID
		} else if entityID, ok := inputEntity[item.Item]; ok {
			layoutItem.InputID = entityID
		} else {
			return nil, &Vista.BuildError{
				Dashboard: key.String(),
				Reason:    fmt.Sprintf("layout item %q resolves to neither a visualization nor an input", item.Item),
			}
		}
		graph.Layout.Items = append(graph.Layout.Items, layoutItem)
	}

	return graph, nil
}

func newEntityID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func marshalOptions(options map[string]interface{}) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(options)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
