package sqlinline

const QInsertGeneration = `--sql d87be8c7-4ad7-4c2b-b66e-7e9e040eaa3a
insert into generations (
    id, user_id, type, status, prompt, resolution, aspect_ratio, model_tier, variations,
    result_urls, created_at, updated_at
)
values ($1::uuid, $2::text, $3::text, 'pending', $4::text, $5::text, $6::text, $7::text, $8::int,
        '{}'::text[], $9::timestamptz, $9::timestamptz);
`

// QInsertGenerationWithResources inserts a pending generation and attaches
// the owner's unlinked resources in one statement, so the row only becomes
// claimable together with its inputs. It returns the number of attached
// resources.
const QInsertGenerationWithResources = `--sql 3c9e51a2-6f0d-4b7e-a1c4-82d5f3e96b17
with inserted as (
    insert into generations (
        id, user_id, type, status, prompt, resolution, aspect_ratio, model_tier, variations,
        result_urls, created_at, updated_at
    )
    values ($1::uuid, $2::text, $3::text, 'pending', $4::text, $5::text, $6::text, $7::text, $8::int,
            '{}'::text[], $9::timestamptz, $9::timestamptz)
    returning id, user_id
), linked as (
    update resources r
    set generation_id = i.id
    from inserted i
    where r.id = any($10::uuid[])
      and r.user_id = i.user_id
      and r.generation_id is null
    returning r.id
)
select count(*) from linked;
`

const QSelectGenerationByID = `--sql 1729e80a-be91-4061-86e5-d40d7c68f4da
select id::text, user_id, type, status, prompt, resolution, aspect_ratio, model_tier, variations,
       result_urls, error_message, created_at, updated_at, completed_at
from generations
where id = $1::uuid;
`

const QSelectGenerationForOwner = `--sql 58a04350-0473-43fd-8cd6-9bb758c6f747
select id::text, user_id, type, status, prompt, resolution, aspect_ratio, model_tier, variations,
       result_urls, error_message, created_at, updated_at, completed_at
from generations
where id = $1::uuid
  and user_id = $2::text;
`

// QClaimNextGeneration moves the oldest pending row to processing. Concurrent
// workers skip rows another transaction already holds.
const QClaimNextGeneration = `--sql 5dfeb177-784b-4f40-8687-8b98d73c82ff
with next_generation as (
    select id
    from generations
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
)
update generations g
set status = 'processing', updated_at = now()
from next_generation n
where g.id = n.id
returning g.id::text, g.user_id, g.type, g.status, g.prompt, g.resolution, g.aspect_ratio,
          g.model_tier, g.variations, g.result_urls, g.error_message, g.created_at,
          g.updated_at, g.completed_at;
`

const QMarkGenerationSucceeded = `--sql 1d05b522-2399-4af0-999b-e526ad700b03
update generations
set status = 'success',
    result_urls = $2::text[],
    error_message = null,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and status = 'processing'
  and cardinality($2::text[]) > 0;
`

const QMarkGenerationFailed = `--sql 27b3b7f3-ca71-4665-a528-116fb3c7d733
update generations
set status = 'error',
    error_message = $2::text,
    result_urls = '{}'::text[],
    completed_at = now(),
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

// QListSucceededGenerations pages an owner's gallery newest first. A null
// cursor starts from the newest row; the id breaks ties on created_at.
const QListSucceededGenerations = `--sql f1755d24-e04a-4ddd-85a9-eff1119f0b1c
select id::text, user_id, type, status, prompt, resolution, aspect_ratio, model_tier, variations,
       result_urls, error_message, created_at, updated_at, completed_at
from generations
where user_id = $1::text
  and status = 'success'
  and ($3::timestamptz is null
       or created_at < $3::timestamptz
       or ($4::uuid is not null and created_at = $3::timestamptz and id < $4::uuid))
order by created_at desc, id desc
limit $2::int;
`

const QReapStaleGenerations = `--sql 3254ba78-e48d-4b12-a08e-779fa523855a
update generations
set status = 'error',
    error_message = $2::text,
    result_urls = '{}'::text[],
    completed_at = now(),
    updated_at = now()
where status in ('pending', 'processing')
  and updated_at < $1::timestamptz
returning id::text, user_id;
`
