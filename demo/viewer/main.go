// Demo server: drag a .shp (plus optional .dbf and .prj) onto the page and
// see the converted features on a Leaflet map.
package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/paulmach/orb/geojson"

	shapefile "github.com/tingold/orb-shapefile"
)

const page = `<!DOCTYPE html>
<html>
<head>
  <title>Shapefile viewer</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <style>
    html, body, #map { height: 100%; margin: 0; }
    #hint { position: absolute; top: 10px; left: 50px; z-index: 1000;
            background: white; padding: 6px 10px; border-radius: 4px; }
  </style>
</head>
<body>
<div id="map"></div>
<div id="hint">Drop .shp / .dbf / .prj files here</div>
<script>
  const map = L.map('map').setView([20, 0], 2);
  L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png',
    { attribution: '&copy; OpenStreetMap contributors' }).addTo(map);
  let layer = null;

  document.body.addEventListener('dragover', e => e.preventDefault());
  document.body.addEventListener('drop', async e => {
    e.preventDefault();
    const form = new FormData();
    for (const f of e.dataTransfer.files) {
      const name = f.name.toLowerCase();
      if (name.endsWith('.shp')) form.append('shp', f);
      if (name.endsWith('.dbf')) form.append('dbf', f);
      if (name.endsWith('.prj')) form.append('prj', f);
    }
    const resp = await fetch('/convert', { method: 'POST', body: form });
    if (!resp.ok) { alert(await resp.text()); return; }
    const fc = await resp.json();
    if (layer) map.removeLayer(layer);
    layer = L.geoJSON(fc, {
      onEachFeature: (f, l) => {
        if (f.properties) l.bindPopup('<pre>' + JSON.stringify(f.properties, null, 1) + '</pre>');
      }
    }).addTo(map);
    if (fc.bbox) map.fitBounds([[fc.bbox[1], fc.bbox[0]], [fc.bbox[3], fc.bbox[2]]]);
  });
</script>
</body>
</html>`

func main() {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, page)
	})
	http.HandleFunc("/convert", convert)

	log.Println("Viewer running on http://localhost:8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}

func convert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	shp := formFile(r, "shp")
	if shp == nil {
		http.Error(w, "missing .shp upload", http.StatusBadRequest)
		return
	}

	var dbf shapefile.ChunkSeq
	if data := formFile(r, "dbf"); data != nil {
		dbf = shapefile.BytesChunks(data)
	}

	var projection shapefile.Projection
	if wkt := formFile(r, "prj"); wkt != nil {
		p, err := shapefile.ParseProjection(string(wkt))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		projection = p
	}

	var bbox [4]float64
	opts := &shapefile.Options{Projection: projection, BBox: &bbox}

	fc := geojson.NewFeatureCollection()
	for f, err := range shapefile.Features(shapefile.BytesChunks(shp), dbf, opts) {
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		fc.Append(f)
	}
	fc.BBox = bbox[:]

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func formFile(r *http.Request, name string) []byte {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	return data
}
