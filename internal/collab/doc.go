// Package collab defines the external collaborator interfaces the
// orchestrator depends on but never implements itself: transform lookup
// on the ingest side, and pose/pano/path publication on the output side.
//
// Grounded on the teacher's internal/lidar/pipeline package, which
// defines small single-method interfaces (ForegroundForwarder,
// VisualiserPublisher, PublishSink) at the pipeline boundary so the
// pipeline package itself never imports a concrete network/storage
// adapter.
package collab
