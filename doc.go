// Package hsisomap computes low-dimensional manifold coordinates of
// hyperspectral image cubes with a landmark, graph-approximated Isomap.
//
// 🚀 Pipeline
//
//	backbone  → subsample representative pixels (or keep all of them)
//	knngraph  → connected kNN graph over the backbone (fixed or adaptive k,
//	            MST augmentation until one component remains)
//	landmark  → anchors chosen by list or by per-subset MNF extrema
//	dijkstra  → geodesic distances from every landmark to every backbone pixel
//	embedding → CMDS of the landmark-to-landmark geodesics
//	manifold  → distance-based triangulation of every backbone pixel
//	backbone  → locally linear reconstruction of every image pixel
//
// ✨ Building blocks
//
//   - matrix: row-major Dense implementing gonum's mat.Matrix, text codec
//   - vptree, unionfind, graph: spatial index, disjoint sets, graph backends
//   - subsetter: recursive PCA slicing and random-skeleton partitions
//   - artifact: matrix and index files with zstd / lz4 compression
//   - pipeline: YAML task files, stage metrics, multi-task runs
//
// Every randomized step takes a seed, so runs are reproducible.
//
// Quick start:
//
//	go install github.com/hsisomap/hsisomap/cmd/hsisomap@latest
//	hsisomap run task.yaml
package hsisomap
