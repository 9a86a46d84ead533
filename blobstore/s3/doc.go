// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	idx.Save(ctx, "products.hnsw", hnsw.ToStore(store))
//
// # Features
//
//   - Multipart streaming uploads through the S3 transfer manager
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
