package sqlinline

const QSelectResourcesByGeneration = `--sql 50f2d8d3-733e-4155-be27-8c90a87b8d90
select id::text, user_id, generation_id::text, storage_path, mime_type, created_at
from resources
where generation_id = $1::uuid
order by created_at asc, id asc;
`
