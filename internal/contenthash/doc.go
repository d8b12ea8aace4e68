// Package contenthash computes the content digests picgaz uses as file
// identity.
//
// Files are streamed in fixed-size chunks so memory stays bounded for large
// inputs. The digest depends only on the bytes: name, path, and timestamps
// never influence it. Supported algorithms are md5, sha1, sha256, sha512, and
// blake3.
package contenthash
