package session

// Lua scripts shared by the Redis and Valkey stores. A session lives in a
// hash with fields rev, uid, tid and blob; the per-user index is a set.

// PutScript writes a whole record.
//
//	KEYS[1] session key, KEYS[2] user index key
//	ARGV[1] revision, ARGV[2] user id, ARGV[3] tenant id, ARGV[4] blob,
//	ARGV[5] ttl in milliseconds, ARGV[6] handle
const PutScript = `
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "rev", ARGV[1], "uid", ARGV[2], "tid", ARGV[3], "blob", ARGV[4])
redis.call("PEXPIRE", KEYS[1], tonumber(ARGV[5]))
redis.call("SADD", KEYS[2], ARGV[6])
return 1
`

// CompareAndSwapScript swaps the blob iff the stored revision matches.
// Returns 1 when swapped, 0 when absent, -1 on revision mismatch.
//
//	KEYS[1] session key
//	ARGV[1] expected revision, ARGV[2] next revision, ARGV[3] blob,
//	ARGV[4] ttl in milliseconds
const CompareAndSwapScript = `
local rev = redis.call("HGET", KEYS[1], "rev")
if not rev then
  return 0
end
if rev ~= ARGV[1] then
  return -1
end
redis.call("HSET", KEYS[1], "rev", ARGV[2], "blob", ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl and ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return 1
`

// DeleteScript removes a session and its index entry.
// Returns 1 when a record was removed, 0 otherwise.
//
//	KEYS[1] session key
//	ARGV[1] user index key prefix, ARGV[2] handle
const DeleteScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
local tid = redis.call("HGET", KEYS[1], "tid") or "0"
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. tid .. ":" .. uid, ARGV[2])
return 1
`
