package s3

// Placeholder for an object-storage backed ArtifactStore.
//
// Intent: a durable implementation of core.ArtifactStore on AWS S3 or a
// compatible API. Left as a stub so downstream users can supply client wiring
// without pulling a cloud SDK into minimal builds. An implementation should
// keep the dependency surface narrow and expose bucket, prefix and
// encryption settings through a small Config struct.
