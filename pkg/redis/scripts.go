package redis

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
const compareAndDelete = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// incrWithExpiry increments KEYS[1] and, on the first increment, sets a TTL
// of ARGV[1] milliseconds. Running both in one script means a counter can
// never be left without an expiry.
const incrWithExpiry = `
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`
