package redis

import (
	rdb "github.com/redis/go-redis/v9"
)

// Respuesta de los scripts: {status, campo1, valor1, ...}. El hash devuelto es
// el estado previo a la transición.
const (
	statusOK       = "ok"
	statusMissing  = "missing"
	statusConsumed = "consumed"
	statusExpired  = "expired"
	statusMismatch = "mismatch"
	statusConflict = "conflict"
)

// consumeScript KEYS[1]=handle; ARGV[1]=now ms; ARGV[2]/ARGV[3]=client_id/redirect_uri
// esperados (vacíos = no comparar). El handle se quema antes de comparar.
var consumeScript = rdb.NewScript(`
local data = redis.call('HGETALL', KEYS[1])
if #data == 0 then return {'missing'} end
local h = {}
for i = 1, #data, 2 do h[data[i]] = data[i + 1] end
if h['state'] ~= 'pending' then return {'consumed'} end
if tonumber(h['expires_at']) <= tonumber(ARGV[1]) then return {'expired'} end
redis.call('HSET', KEYS[1], 'state', 'consumed')
if ARGV[2] ~= '' and (h['client_id'] ~= ARGV[2] or h['redirect_uri'] ~= ARGV[3]) then
  return {'mismatch'}
end
table.insert(data, 1, 'ok')
return data
`)

// rotateScript KEYS[1]=viejo, KEYS[2]=nuevo; ARGV[1]=now ms, ARGV[2]=replaced_by,
// ARGV[3]=pexpireat del nuevo, ARGV[4..]=campos del nuevo. user_id, client_id,
// scope y auth_time se heredan del viejo.
var rotateScript = rdb.NewScript(`
local data = redis.call('HGETALL', KEYS[1])
if #data == 0 then return {'missing'} end
local h = {}
for i = 1, #data, 2 do h[data[i]] = data[i + 1] end
if h['state'] ~= 'pending' then
  table.insert(data, 1, 'consumed')
  return data
end
if tonumber(h['expires_at']) <= tonumber(ARGV[1]) then return {'expired'} end
if redis.call('EXISTS', KEYS[2]) == 1 then return {'conflict'} end
redis.call('HSET', KEYS[1], 'state', 'consumed', 'replaced_by', ARGV[2])
redis.call('HSET', KEYS[2], unpack(ARGV, 4))
redis.call('HSET', KEYS[2], 'user_id', h['user_id'], 'client_id', h['client_id'],
  'scope', h['scope'], 'auth_time', h['auth_time'])
redis.call('PEXPIREAT', KEYS[2], ARGV[3])
table.insert(data, 1, 'ok')
return data
`)

// createScript KEYS[1]=handle; ARGV[1]=pexpireat, ARGV[2..]=campos.
var createScript = rdb.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return {'conflict'} end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIREAT', KEYS[1], ARGV[1])
return {'ok'}
`)
