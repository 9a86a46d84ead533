// Package blobstore provides the storage abstraction saved indexes are
// written to and loaded from.
//
// A Store holds named, immutable blobs. Create streams a new blob that only
// becomes visible once Close succeeds; Abort discards it.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads served from a memory mapping
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with multipart streaming uploads
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
