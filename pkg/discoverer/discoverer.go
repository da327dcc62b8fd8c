// Package discoverer finds the schema.org payload URLs for a site and
// converges them into pkg/store, queuing jobs for whatever changed
// (spec.md §4.4). Ported from original_source/code/core/master.py's
// get_schema_urls_from_robots/parse_schema_map_xml/process_site.
package discoverer

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/events"
	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/queue"
	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

// SchemaURL is one entry parsed out of a schema_map.xml (master.py's
// (url, content_type) tuple).
type SchemaURL struct {
	URL         string
	ContentType string
}

// sitemapDoc mirrors the sitemap-0.9 <urlset><url></url></urlset>
// shape master.py parses. encoding/xml matches elements by local name
// when a tag carries no namespace, so this struct decodes both
// namespaced and bare documents without the three-way namespace
// fallback the Python original needs.
type sitemapDoc struct {
	XMLName xml.Name       `xml:"urlset"`
	URLs    []sitemapEntry `xml:"url"`
}

type sitemapEntry struct {
	ContentType string `xml:"contentType,attr"`
	Loc         string `xml:"loc"`
}

// ParseSchemaMapXML extracts the schema.org payload URLs from a
// schema_map.xml document, resolving relative <loc> values against
// baseURL and keeping only entries whose contentType mentions
// "schema.org" (case-insensitive), matching master.py's filter.
func ParseSchemaMapXML(xmlContent []byte, baseURL string) ([]SchemaURL, error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(xmlContent, &doc); err != nil {
		return nil, fmt.Errorf("discoverer: parse schema map xml: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("discoverer: parse base url: %w", err)
	}

	var out []SchemaURL
	for _, entry := range doc.URLs {
		if !strings.Contains(strings.ToLower(entry.ContentType), "schema.org") {
			continue
		}
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		resolved, err := base.Parse(loc)
		if err != nil {
			continue
		}
		out = append(out, SchemaURL{URL: resolved.String(), ContentType: entry.ContentType})
	}
	return out, nil
}

// robotsSchemaMapPrefix matches "schemamap:" at the start of a
// robots.txt line, case-insensitively (master.py's
// line.lower().startswith('schemamap:')).
const robotsSchemaMapPrefix = "schemamap:"

// Triple is one (schema_map_url, file_url, content_type) discovered
// for a site.
type Triple struct {
	SchemaMapURL string
	FileURL      string
	ContentType  string
}

// Discoverer resolves a site's schema maps and the files within them.
type Discoverer struct {
	http   *httpfetch.Client
	log    zerolog.Logger
	events *events.Broker
}

func New(client *httpfetch.Client, logger zerolog.Logger) *Discoverer {
	return &Discoverer{http: client, log: logger}
}

// WithEvents attaches a broker the Discoverer publishes to; nil (the
// default) disables publishing entirely.
func (d *Discoverer) WithEvents(b *events.Broker) *Discoverer {
	d.events = b
	return d
}

func (d *Discoverer) publish(evtType events.EventType, msg string, meta map[string]string) {
	if d.events == nil {
		return
	}
	d.events.Publish(&events.Event{Type: evtType, Message: msg, Metadata: meta})
}

// DiscoverSchemaMapURLs finds the schema_map.xml URLs for a site:
// robots.txt "schemaMap:" directives first; failing those, siteURL
// itself when it already names a schema_map.xml file, else
// schema_map.xml at the site root. Mirrors
// master.py's get_schema_urls_from_robots outer resolution, minus the
// XML parse (done separately so callers can fetch each map once).
func (d *Discoverer) DiscoverSchemaMapURLs(ctx context.Context, siteURL string) ([]string, error) {
	robotsURL, err := joinURL(siteURL, "/robots.txt")
	if err == nil {
		body, status, err := d.http.Get(ctx, robotsURL)
		if err == nil && status == 200 {
			var maps []string
			for _, line := range strings.Split(string(body), "\n") {
				line = strings.TrimRight(line, "\r")
				if len(line) < len(robotsSchemaMapPrefix) {
					continue
				}
				if !strings.EqualFold(line[:len(robotsSchemaMapPrefix)], robotsSchemaMapPrefix) {
					continue
				}
				target := strings.TrimSpace(line[len(robotsSchemaMapPrefix):])
				if resolved, err := joinURL(siteURL, target); err == nil {
					maps = append(maps, resolved)
				}
			}
			if len(maps) > 0 {
				return dedupe(maps), nil
			}
		}
	}

	if strings.HasSuffix(siteURL, "schema_map.xml") {
		return []string{siteURL}, nil
	}

	fallback, err := joinURL(strings.TrimSuffix(siteURL, "/")+"/", "schema_map.xml")
	if err == nil {
		// Existence isn't probed here: Discover fetches this same URL
		// to parse it, and a non-200/fetch-error there is already
		// treated as "no map for this candidate" (same as a bad
		// robots.txt directive). Probing here too would fetch every
		// schema_map.xml twice per Run.
		return []string{fallback}, nil
	}

	return nil, nil
}

// Discover resolves every schema map for siteURL and returns the full
// set of (schema_map, file, content_type) triples across all of them.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) ([]Triple, error) {
	mapURLs, err := d.DiscoverSchemaMapURLs(ctx, siteURL)
	if err != nil {
		return nil, err
	}
	if len(mapURLs) == 0 {
		return nil, nil
	}

	var triples []Triple
	for _, mapURL := range mapURLs {
		body, status, err := d.http.Get(ctx, mapURL)
		if err != nil || status != 200 {
			d.log.Warn().Str("schema_map", mapURL).Int("status", status).Msg("failed to fetch schema map")
			continue
		}
		base := siteURL
		if strings.HasSuffix(siteURL, "schema_map.xml") {
			base = siteURL[:strings.LastIndex(siteURL, "/")+1]
		}
		entries, err := ParseSchemaMapXML(body, base)
		if err != nil {
			d.log.Warn().Str("schema_map", mapURL).Err(err).Msg("failed to parse schema map")
			continue
		}
		for _, e := range entries {
			triples = append(triples, Triple{SchemaMapURL: mapURL, FileURL: e.URL, ContentType: e.ContentType})
		}
	}
	return triples, nil
}

// DefaultProcessIntervalHours is used when Run has to create the Site
// row itself (master.py's add_schema_map_to_site does the same: a
// site discovered only because a job referenced it gets the default
// recrawl interval until a caller overrides it via AddSite).
const DefaultProcessIntervalHours = 24

// Run discovers siteURL's files, converges them into st (one
// DiffSiteFiles call per schema map, per spec.md §4.1's scoping rule),
// and enqueues process_file/process_removed_file jobs for whatever
// changed. Mirrors master.py's process_site + add_schema_map_to_site.
func (d *Discoverer) Run(ctx context.Context, st store.Store, q queue.Queue, siteURL, userID string) error {
	if _, err := st.GetSite(ctx, siteURL, userID); err == store.ErrNotFound {
		if err := st.AddSite(ctx, &types.Site{
			SiteURL:              siteURL,
			UserID:               userID,
			ProcessIntervalHours: DefaultProcessIntervalHours,
			IsActive:             true,
			CreatedAt:            time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("discoverer: ensure site row: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("discoverer: get site: %w", err)
	}

	triples, err := d.Discover(ctx, siteURL)
	if err != nil {
		d.publish(events.EventSiteErrored, err.Error(), map[string]string{"site": siteURL, "user_id": userID})
		return err
	}

	bySchemaMap := make(map[string][]Triple)
	for _, t := range triples {
		bySchemaMap[t.SchemaMapURL] = append(bySchemaMap[t.SchemaMapURL], t)
	}

	for schemaMap, group := range bySchemaMap {
		fileTriples := make([]types.FileTriple, len(group))
		contentTypeByURL := make(map[string]string, len(group))
		for i, t := range group {
			fileTriples[i] = types.FileTriple{SiteURL: siteURL, SchemaMap: schemaMap, FileURL: t.FileURL, ContentType: t.ContentType}
			contentTypeByURL[t.FileURL] = t.ContentType
		}

		added, removed, err := st.DiffSiteFiles(ctx, siteURL, userID, schemaMap, fileTriples)
		if err != nil {
			return fmt.Errorf("discoverer: diff site files for %s: %w", schemaMap, err)
		}

		for _, fileURL := range added {
			job := types.JobBody{
				Type:        types.JobProcessFile,
				UserID:      userID,
				Site:        siteURL,
				FileURL:     fileURL,
				SchemaMap:   schemaMap,
				ContentType: contentTypeByURL[fileURL],
				QueuedAt:    time.Now().UTC(),
			}
			if err := enqueue(ctx, q, job); err != nil {
				log.WithFile(d.log, fileURL, userID).Error().Err(err).Msg("failed to queue process_file job")
			}
		}
		for _, fileURL := range removed {
			job := types.JobBody{
				Type:     types.JobProcessRemovedFile,
				UserID:   userID,
				Site:     siteURL,
				FileURL:  fileURL,
				QueuedAt: time.Now().UTC(),
			}
			if err := enqueue(ctx, q, job); err != nil {
				log.WithFile(d.log, fileURL, userID).Error().Err(err).Msg("failed to queue process_removed_file job")
			}
		}
	}

	if err := st.UpdateSiteLastProcessed(ctx, siteURL, userID, time.Now().UTC()); err != nil {
		return err
	}

	d.publish(events.EventSiteDiscovered, "discovered "+siteURL, map[string]string{"site": siteURL, "user_id": userID})
	return nil
}

func enqueue(ctx context.Context, q queue.Queue, job types.JobBody) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("discoverer: marshal job: %w", err)
	}
	return q.Send(ctx, body)
}

func joinURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := b.Parse(ref)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
